package appErrors

import (
    "errors"
    "net/http"
)

// HTTPStatus maps an application error to the response status code.
// Unknown errors are internal server errors.
func HTTPStatus(err error) int {
    var (
        validation   *ErrValidation
        unauthorized *ErrUnauthorized
        denied       *ErrPermissionDenied
        ownership    *ErrOwnershipMismatch
        campaign     *ErrCampaignNotFound
        donation     *ErrDonationNotFound
        category     *ErrCategoryNotFound
        user         *ErrUserNotFound
        notAccepting *ErrCampaignNotAcceptingDonations
        duplicate    *ErrDuplicateSlug
        transition   *ErrInvalidTransition
        payment      *ErrPaymentInitiationFailed
    )
    switch {
    case errors.As(err, &validation):
        return http.StatusBadRequest
    case errors.As(err, &unauthorized):
        return http.StatusUnauthorized
    case errors.As(err, &denied), errors.As(err, &ownership):
        return http.StatusForbidden
    case errors.As(err, &campaign), errors.As(err, &donation), errors.As(err, &category), errors.As(err, &user):
        return http.StatusNotFound
    case errors.As(err, &notAccepting), errors.As(err, &duplicate), errors.As(err, &transition):
        return http.StatusConflict
    case errors.As(err, &payment):
        return http.StatusBadGateway
    }
    return http.StatusInternalServerError
}
