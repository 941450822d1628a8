// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is returned when no campaign matches an id or slug.
type ErrCampaignNotFound struct {
    CampaignID int
    Slug       string
}

func (e *ErrCampaignNotFound) Error() string {
    if e.Slug != "" {
        return fmt.Sprintf("campaign %q not found", e.Slug)
    }
    return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
    return &ErrCampaignNotFound{CampaignID: id}
}

func NewCampaignSlugNotFound(slug string) error {
    return &ErrCampaignNotFound{Slug: slug}
}

// ErrDonationNotFound is returned when no donation matches an id or correlation id.
type ErrDonationNotFound struct {
    DonationID    int
    TransactionID string
}

func (e *ErrDonationNotFound) Error() string {
    if e.TransactionID != "" {
        return fmt.Sprintf("donation for transaction %q not found", e.TransactionID)
    }
    return fmt.Sprintf("donation with ID %d not found", e.DonationID)
}

func NewDonationNotFound(id int) error {
    return &ErrDonationNotFound{DonationID: id}
}

func NewDonationByTransactionNotFound(txID string) error {
    return &ErrDonationNotFound{TransactionID: txID}
}

type ErrCategoryNotFound struct {
    Name string
    ID   int
}

func (e *ErrCategoryNotFound) Error() string {
    if e.Name != "" {
        return fmt.Sprintf("category %q not found", e.Name)
    }
    return fmt.Sprintf("category with ID %d not found", e.ID)
}

func NewCategoryNotFound(id int) error {
    return &ErrCategoryNotFound{ID: id}
}

func NewCategoryNameNotFound(name string) error {
    return &ErrCategoryNotFound{Name: name}
}

// ErrUserNotFound covers unknown user ids and usernames.
type ErrUserNotFound struct {
    UserID   int
    Username string
}

func (e *ErrUserNotFound) Error() string {
    if e.Username != "" {
        return fmt.Sprintf("user %q not found", e.Username)
    }
    return fmt.Sprintf("user with ID %d not found", e.UserID)
}

func NewUserNotFound(id int) error {
    return &ErrUserNotFound{UserID: id}
}

func NewUsernameNotFound(username string) error {
    return &ErrUserNotFound{Username: username}
}

// ErrValidation reports malformed or out-of-range input for a single field.
type ErrValidation struct {
    Field   string
    Message string
}

func (e *ErrValidation) Error() string {
    return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidation(field, message string) error {
    return &ErrValidation{Field: field, Message: message}
}

// ErrPermissionDenied is returned when the actor may not perform Action on the resource.
type ErrPermissionDenied struct {
    ActorID int
    Action  string
}

func (e *ErrPermissionDenied) Error() string {
    return fmt.Sprintf("user %d is not allowed to %s", e.ActorID, e.Action)
}

func NewPermissionDenied(actorID int, action string) error {
    return &ErrPermissionDenied{ActorID: actorID, Action: action}
}

// ErrInvalidTransition is a status change the lifecycle does not permit.
// Publishing an already published campaign reports it as a warning.
type ErrInvalidTransition struct {
    Entity string
    From   string
    To     string
}

func (e *ErrInvalidTransition) Error() string {
    return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func NewInvalidTransition(entity, from, to string) error {
    return &ErrInvalidTransition{Entity: entity, From: from, To: to}
}

type ErrCampaignNotAcceptingDonations struct {
    Slug   string
    Status string
}

func (e *ErrCampaignNotAcceptingDonations) Error() string {
    return fmt.Sprintf("campaign %q is not accepting donations (status: %s)", e.Slug, e.Status)
}

func NewCampaignNotAcceptingDonations(slug, status string) error {
    return &ErrCampaignNotAcceptingDonations{Slug: slug, Status: status}
}

// ErrPaymentInitiationFailed wraps the processor or network failure.
// The donation stays pending and can be retried.
type ErrPaymentInitiationFailed struct {
    DonationID int
    Err        error
}

func (e *ErrPaymentInitiationFailed) Error() string {
    return fmt.Sprintf("payment initiation failed for donation %d: %v", e.DonationID, e.Err)
}

func (e *ErrPaymentInitiationFailed) Unwrap() error {
    return e.Err
}

func NewPaymentInitiationFailed(donationID int, err error) error {
    return &ErrPaymentInitiationFailed{DonationID: donationID, Err: err}
}

type ErrOwnershipMismatch struct {
    DonationID int
    ActorID    int
}

func (e *ErrOwnershipMismatch) Error() string {
    return fmt.Sprintf("donation %d does not belong to user %d", e.DonationID, e.ActorID)
}

func NewOwnershipMismatch(donationID, actorID int) error {
    return &ErrOwnershipMismatch{DonationID: donationID, ActorID: actorID}
}

type ErrDuplicateSlug struct {
    Slug string
}

func (e *ErrDuplicateSlug) Error() string {
    return fmt.Sprintf("slug %q is already taken", e.Slug)
}

func NewDuplicateSlug(slug string) error {
    return &ErrDuplicateSlug{Slug: slug}
}

type ErrUnauthorized struct {
    Reason string
}

func (e *ErrUnauthorized) Error() string {
    return "unauthorized: " + e.Reason
}

func NewUnauthorized(reason string) error {
    return &ErrUnauthorized{Reason: reason}
}
