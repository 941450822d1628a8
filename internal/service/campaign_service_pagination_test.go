package service_test

import (
	"context"
	"testing"

	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

// ✅ Mock Campaign Repository for pagination. Methods the test does not need
// come from the nil embedded interface.
type MockCampaignPaginationRepo struct {
	repository.CampaignRepositoryInterface
	gotStatus string
}

func (m *MockCampaignPaginationRepo) ListCampaigns(ctx context.Context, offset, limit int, categoryID *int, status string) ([]*model.Campaign, int, error) {
	m.gotStatus = status
	all := []*model.Campaign{
		{ID: 5, Title: "C5", Status: model.CampaignActive},
		{ID: 4, Title: "C4", Status: model.CampaignActive},
		{ID: 3, Title: "C3", Status: model.CampaignActive},
		{ID: 2, Title: "C2", Status: model.CampaignActive},
		{ID: 1, Title: "C1", Status: model.CampaignActive},
	}

	start := offset
	end := offset + limit

	if start >= len(all) {
		return []*model.Campaign{}, len(all), nil
	}
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], len(all), nil
}

func TestPagination(t *testing.T) {
	repo := &MockCampaignPaginationRepo{}
	svc := &service.CampaignService{
		CampaignRepo: repo,
	}

	tests := []struct {
		page, pageSize int
		wantIDs        []int
		wantPage       int
		wantPageSize   int
		wantTotalPages int
	}{
		{1, 2, []int{5, 4}, 1, 2, 3},
		{2, 2, []int{3, 2}, 2, 2, 3},
		{3, 2, []int{1}, 3, 2, 3},
		{4, 2, []int{}, 4, 2, 3},
		{0, 0, []int{5, 4, 3, 2, 1}, 1, 20, 1},
		{1, 500, []int{5, 4, 3, 2, 1}, 1, 100, 1},
	}

	for _, tt := range tests {
		campaigns, pagination, err := svc.ListCampaigns(context.Background(), tt.page, tt.pageSize, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.gotStatus != model.CampaignActive {
			t.Errorf("expected only active campaigns to be listed, got status filter %q", repo.gotStatus)
		}
		if len(campaigns) != len(tt.wantIDs) {
			t.Fatalf("page %d: expected %d campaigns, got %d", tt.page, len(tt.wantIDs), len(campaigns))
		}
		for i, id := range tt.wantIDs {
			if campaigns[i].ID != id {
				t.Errorf("page %d: expected campaign %d at %d, got %d", tt.page, id, i, campaigns[i].ID)
			}
		}
		if pagination["page"] != tt.wantPage || pagination["page_size"] != tt.wantPageSize {
			t.Errorf("unexpected pagination %+v", pagination)
		}
		if pagination["total_count"] != 5 || pagination["total_pages"] != tt.wantTotalPages {
			t.Errorf("unexpected totals %+v", pagination)
		}
	}
}
