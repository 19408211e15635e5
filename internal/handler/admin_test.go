package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/redeemly/redeemly/internal/model"
	"github.com/redeemly/redeemly/internal/repository"
)

type fakeAdminStore struct {
	codes     map[string]*model.RedemptionCode
	campaigns []*model.Campaign
	users     map[string]*model.User
}

func (f *fakeAdminStore) GetCodeByValue(_ context.Context, uniqueCode string) (*model.RedemptionCode, error) {
	if code, ok := f.codes[uniqueCode]; ok {
		return code, nil
	}
	return nil, repository.ErrCodeNotFound
}

func (f *fakeAdminStore) SearchCampaignsByName(_ context.Context, name string, _ int) ([]*model.Campaign, error) {
	var out []*model.Campaign
	for _, c := range f.campaigns {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeAdminStore) ListAPIKeysByUserID(_ context.Context, userID string) ([]*model.APIKey, error) {
	return nil, nil
}

func (f *fakeAdminStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeAdminStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func newAdminTestRouter(store *fakeAdminStore) http.Handler {
	h := NewAdminHandler(store, store, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Get("/admin/lookup", h.Lookup)
	r.Get("/admin/users/{id}", h.GetUser)
	return r
}

func TestAdminLookup_ExactCodeMatch(t *testing.T) {
	store := &fakeAdminStore{
		codes: map[string]*model.RedemptionCode{
			"ABCD1234": {ID: "code-1", CampaignID: "camp-1", UniqueCode: "ABCD1234"},
		},
	}
	router := newAdminTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/admin/lookup?q=ABCD1234", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp LookupResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Codes) != 1 || resp.Codes[0].UniqueCode != "ABCD1234" {
		t.Errorf("expected one code match, got %+v", resp.Codes)
	}
	if resp.Total != 1 {
		t.Errorf("expected total 1, got %d", resp.Total)
	}
}

func TestAdminLookup_FallsBackToCampaignSearch(t *testing.T) {
	store := &fakeAdminStore{
		campaigns: []*model.Campaign{
			{ID: "camp-1", Name: "Spring Promo"},
		},
	}
	router := newAdminTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/admin/lookup?q=Spring", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp LookupResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Campaigns) != 1 || resp.Campaigns[0].Name != "Spring Promo" {
		t.Errorf("expected one campaign match, got %+v", resp.Campaigns)
	}
}

func TestAdminLookup_MissingQuery(t *testing.T) {
	router := newAdminTestRouter(&fakeAdminStore{})

	req := httptest.NewRequest(http.MethodGet, "/admin/lookup", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminGetUser(t *testing.T) {
	user := &model.User{
		ID:                   "user-1",
		Email:                "alice@example.com",
		Balance:              decimal.RequireFromString("25.00"),
		TotalRedemptions:     1,
		TotalRedemptionValue: decimal.RequireFromString("25.00"),
	}
	store := &fakeAdminStore{users: map[string]*model.User{"user-1": user}}
	router := newAdminTestRouter(store)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"by id", "/admin/users/user-1", http.StatusOK},
		{"by email", "/admin/users/alice@example.com", http.StatusOK},
		{"unknown", "/admin/users/user-2", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantStatus != http.StatusOK {
				return
			}

			var got model.User
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if got.ID != user.ID {
				t.Errorf("expected user %s, got %s", user.ID, got.ID)
			}
			if !got.Balance.Equal(user.Balance) {
				t.Errorf("expected balance %s, got %s", user.Balance, got.Balance)
			}
		})
	}
}
