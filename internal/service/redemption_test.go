package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/redeemly/redeemly/internal/model"
	"github.com/redeemly/redeemly/internal/repository"
)

// fakeStore mimics the repository's transactional semantics in
// memory: RedeemCode is a single critical section whose conditional
// check-and-mark decides races, and a failed cap check mutates
// nothing.
type fakeStore struct {
	mu        sync.Mutex
	campaigns map[string]*model.Campaign
	codes     map[string]*model.RedemptionCode // keyed by unique code
	users     map[string]*model.User           // keyed by email
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns: make(map[string]*model.Campaign),
		codes:     make(map[string]*model.RedemptionCode),
		users:     make(map[string]*model.User),
	}
}

func (f *fakeStore) GetCampaignByID(_ context.Context, id string) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	campaign, ok := f.campaigns[id]
	if !ok || campaign.DeletedAt != nil {
		return nil, repository.ErrCampaignNotFound
	}
	copied := *campaign
	return &copied, nil
}

func (f *fakeStore) GetCodeByValue(_ context.Context, value string) (*model.RedemptionCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.codes[value]
	if !ok {
		return nil, repository.ErrCodeNotFound
	}
	copied := *code
	return &copied, nil
}

func (f *fakeStore) RedeemCode(_ context.Context, params repository.RedeemParams) (*repository.RedeemRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var code *model.RedemptionCode
	for _, c := range f.codes {
		if c.ID == params.CodeID {
			code = c
			break
		}
	}
	if code == nil {
		return nil, repository.ErrCodeNotFound
	}
	// The conditional-update equivalent: exactly one caller wins.
	if code.Used {
		return nil, repository.ErrCodeAlreadyRedeemed
	}

	campaign := f.campaigns[params.CampaignID]
	if campaign == nil || campaign.AtRedemptionLimit() {
		// Rolls back: nothing below has happened yet.
		return nil, repository.ErrCampaignLimitReached
	}

	user, ok := f.users[params.UserEmail]
	if !ok {
		user = &model.User{ID: params.UserID, Email: params.UserEmail}
		f.users[params.UserEmail] = user
	}

	now := params.Now
	code.Used = true
	code.UserID = &user.ID
	code.UserEmail = &user.Email
	code.RedeemedAt = &now
	code.RedemptionURL = params.RedemptionURL

	user.Balance = user.Balance.Add(params.Value)
	user.TotalRedemptions++
	user.TotalRedemptionValue = user.TotalRedemptionValue.Add(params.Value)

	campaign.CurrentRedemptions++
	campaign.TotalRedemptionValue = campaign.TotalRedemptionValue.Add(params.Value)

	return &repository.RedeemRecord{
		UserID:               user.ID,
		NewBalance:           user.Balance,
		TotalRedemptions:     user.TotalRedemptions,
		TotalRedemptionValue: user.TotalRedemptionValue,
		CampaignName:         campaign.Name,
		RedeemedAt:           now,
	}, nil
}

func (f *fakeStore) addCampaign(c model.Campaign) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns[c.ID] = &c
}

func (f *fakeStore) addCode(c model.RedemptionCode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[c.UniqueCode] = &c
}

func (f *fakeStore) code(value string) model.RedemptionCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.codes[value]
}

func (f *fakeStore) campaign(id string) model.Campaign {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.campaigns[id]
}

func value(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func activeFixture(store *fakeStore) (campaignID, codeValue string) {
	store.addCampaign(model.Campaign{
		ID:              "camp-1",
		Name:            "Spring Promo",
		RedemptionValue: value("25.00"),
		Active:          true,
	})
	store.addCode(model.RedemptionCode{
		ID:              "code-1",
		CampaignID:      "camp-1",
		UniqueCode:      "ABCD1234",
		RedemptionValue: value("25.00"),
	})
	return "camp-1", "ABCD1234"
}

func TestRedeemSuccess(t *testing.T) {
	store := newFakeStore()
	campaignID, codeValue := activeFixture(store)
	svc := NewRedemptionService(store, nil)

	result, err := svc.Redeem(context.Background(), RedeemInput{
		CampaignID: campaignID,
		Code:       codeValue,
		Email:      "buyer@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.UniqueCode != codeValue {
		t.Fatalf("unique code %q", result.UniqueCode)
	}
	if !result.RedemptionValue.Equal(value("25.00")) {
		t.Fatalf("value %s", result.RedemptionValue)
	}
	if !result.NewBalance.Equal(value("25.00")) {
		t.Fatalf("new balance %s, want 25.00", result.NewBalance)
	}
	if result.CampaignName != "Spring Promo" {
		t.Fatalf("campaign name %q", result.CampaignName)
	}

	code := store.code(codeValue)
	if !code.Used || code.RedeemedAt == nil || code.UserEmail == nil {
		t.Fatalf("code not fully transitioned: %+v", code)
	}
	if *code.UserEmail != "buyer@example.com" {
		t.Fatalf("redeemer email %q", *code.UserEmail)
	}
}

func TestRedeemAggregateCorrectness(t *testing.T) {
	store := newFakeStore()
	campaignID, codeValue := activeFixture(store)
	svc := NewRedemptionService(store, nil)

	if _, err := svc.Redeem(context.Background(), RedeemInput{
		CampaignID: campaignID, Code: codeValue, Email: "a@example.com",
	}); err != nil {
		t.Fatal(err)
	}

	user := store.users["a@example.com"]
	if !user.Balance.Equal(value("25.00")) {
		t.Fatalf("balance %s, want 25.00", user.Balance)
	}
	if user.TotalRedemptions != 1 {
		t.Fatalf("total redemptions %d, want 1", user.TotalRedemptions)
	}
	if !user.TotalRedemptionValue.Equal(value("25.00")) {
		t.Fatalf("total value %s, want 25.00", user.TotalRedemptionValue)
	}

	campaign := store.campaign(campaignID)
	if campaign.CurrentRedemptions != 1 {
		t.Fatalf("campaign redemptions %d, want 1", campaign.CurrentRedemptions)
	}
	if !campaign.TotalRedemptionValue.Equal(value("25.00")) {
		t.Fatalf("campaign total %s, want 25.00", campaign.TotalRedemptionValue)
	}
}

func TestRedeemPreconditionOrder(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name    string
		setup   func(*fakeStore)
		input   RedeemInput
		wantErr error
	}{
		{
			name:    "campaign_not_found_before_code_checks",
			setup:   func(s *fakeStore) { activeFixture(s) },
			input:   RedeemInput{CampaignID: "missing", Code: "ABCD1234", Email: "a@example.com"},
			wantErr: ErrCampaignNotFound,
		},
		{
			name: "inactive_before_expiry",
			setup: func(s *fakeStore) {
				activeFixture(s)
				s.campaigns["camp-1"].Active = false
				s.campaigns["camp-1"].ExpiresAt = &past
			},
			input:   RedeemInput{CampaignID: "camp-1", Code: "ABCD1234", Email: "a@example.com"},
			wantErr: ErrCampaignInactive,
		},
		{
			name: "campaign_expired_before_code_lookup",
			setup: func(s *fakeStore) {
				activeFixture(s)
				s.campaigns["camp-1"].ExpiresAt = &past
			},
			input:   RedeemInput{CampaignID: "camp-1", Code: "NOSUCH99", Email: "a@example.com"},
			wantErr: ErrCampaignExpired,
		},
		{
			name:    "code_not_found",
			setup:   func(s *fakeStore) { activeFixture(s) },
			input:   RedeemInput{CampaignID: "camp-1", Code: "NOSUCH99", Email: "a@example.com"},
			wantErr: ErrCodeNotFound,
		},
		{
			name: "mismatch_before_used",
			setup: func(s *fakeStore) {
				activeFixture(s)
				s.addCampaign(model.Campaign{ID: "camp-2", Name: "Other", Active: true, RedemptionValue: value("5.00")})
				s.codes["ABCD1234"].Used = true
			},
			input:   RedeemInput{CampaignID: "camp-2", Code: "ABCD1234", Email: "a@example.com"},
			wantErr: ErrCodeCampaignMismatch,
		},
		{
			name: "used_before_expired",
			setup: func(s *fakeStore) {
				activeFixture(s)
				who := "first@example.com"
				s.codes["ABCD1234"].Used = true
				s.codes["ABCD1234"].UserEmail = &who
				s.codes["ABCD1234"].RedeemedAt = &past
				s.codes["ABCD1234"].ExpiresAt = &past
			},
			input:   RedeemInput{CampaignID: "camp-1", Code: "ABCD1234", Email: "a@example.com"},
			wantErr: ErrCodeAlreadyUsed,
		},
		{
			name: "code_expired",
			setup: func(s *fakeStore) {
				activeFixture(s)
				s.codes["ABCD1234"].ExpiresAt = &past
			},
			input:   RedeemInput{CampaignID: "camp-1", Code: "ABCD1234", Email: "a@example.com"},
			wantErr: ErrCodeExpired,
		},
		{
			name:    "missing_input",
			setup:   func(s *fakeStore) { activeFixture(s) },
			input:   RedeemInput{Email: "a@example.com"},
			wantErr: ErrMissingInput,
		},
		{
			name:    "invalid_email",
			setup:   func(s *fakeStore) { activeFixture(s) },
			input:   RedeemInput{CampaignID: "camp-1", Code: "ABCD1234", Email: "not-an-email"},
			wantErr: ErrInvalidEmail,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := newFakeStore()
			test.setup(store)
			svc := NewRedemptionService(store, nil)

			_, err := svc.Redeem(context.Background(), test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("got %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestRedeemAlreadyUsedCarriesContext(t *testing.T) {
	store := newFakeStore()
	campaignID, codeValue := activeFixture(store)
	when := time.Now().Add(-time.Hour).Truncate(time.Second)
	who := "first@example.com"
	store.codes[codeValue].Used = true
	store.codes[codeValue].UserEmail = &who
	store.codes[codeValue].RedeemedAt = &when

	svc := NewRedemptionService(store, nil)
	_, err := svc.Redeem(context.Background(), RedeemInput{
		CampaignID: campaignID, Code: codeValue, Email: "second@example.com",
	})

	var used *AlreadyUsedError
	if !errors.As(err, &used) {
		t.Fatalf("got %v, want *AlreadyUsedError", err)
	}
	if used.RedeemedBy != who || !used.RedeemedAt.Equal(when) {
		t.Fatalf("context %+v", used)
	}
}

func TestRedeemExpiredCodeMutatesNothing(t *testing.T) {
	store := newFakeStore()
	campaignID, codeValue := activeFixture(store)
	past := time.Now().Add(-time.Minute)
	store.codes[codeValue].ExpiresAt = &past

	svc := NewRedemptionService(store, nil)
	if _, err := svc.Redeem(context.Background(), RedeemInput{
		CampaignID: campaignID, Code: codeValue, Email: "a@example.com",
	}); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("got %v, want ErrCodeExpired", err)
	}

	code := store.code(codeValue)
	if code.Used || code.RedeemedAt != nil {
		t.Fatalf("expired code was mutated: %+v", code)
	}
	if store.campaign(campaignID).CurrentRedemptions != 0 {
		t.Fatal("campaign counter moved on failed redemption")
	}
	if len(store.users) != 0 {
		t.Fatal("user created on failed redemption")
	}
}

func TestRedeemConcurrentSingleWinner(t *testing.T) {
	store := newFakeStore()
	campaignID, codeValue := activeFixture(store)
	svc := NewRedemptionService(store, nil)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), RedeemInput{
				CampaignID: campaignID, Code: codeValue, Email: "racer@example.com",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins, alreadyUsed := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrCodeAlreadyUsed):
			alreadyUsed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	if alreadyUsed != attempts-1 {
		t.Fatalf("already-used = %d, want %d", alreadyUsed, attempts-1)
	}
	if got := store.campaign(campaignID).CurrentRedemptions; got != 1 {
		t.Fatalf("campaign counter %d, want 1", got)
	}
}

func TestRedeemCampaignLimit(t *testing.T) {
	store := newFakeStore()
	cap := int64(1)
	store.addCampaign(model.Campaign{
		ID: "camp-1", Name: "Capped", Active: true,
		RedemptionValue: value("10.00"), MaxRedemptions: &cap,
	})
	store.addCode(model.RedemptionCode{ID: "c1", CampaignID: "camp-1", UniqueCode: "AAAA1111", RedemptionValue: value("10.00")})
	store.addCode(model.RedemptionCode{ID: "c2", CampaignID: "camp-1", UniqueCode: "BBBB2222", RedemptionValue: value("10.00")})

	svc := NewRedemptionService(store, nil)
	ctx := context.Background()

	if _, err := svc.Redeem(ctx, RedeemInput{CampaignID: "camp-1", Code: "AAAA1111", Email: "a@example.com"}); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Redeem(ctx, RedeemInput{CampaignID: "camp-1", Code: "BBBB2222", Email: "b@example.com"})
	if !errors.Is(err, ErrRedemptionLimitReached) {
		t.Fatalf("got %v, want ErrRedemptionLimitReached", err)
	}

	// The losing code must remain redeemable once capacity frees up.
	if store.code("BBBB2222").Used {
		t.Fatal("code consumed by a rolled-back redemption")
	}
}

func TestRedeemExpiryInstantStillValid(t *testing.T) {
	store := newFakeStore()
	campaignID, codeValue := activeFixture(store)
	at := time.Now()
	store.codes[codeValue].ExpiresAt = &at

	svc := NewRedemptionService(store, nil)
	svc.now = func() time.Time { return at }

	if _, err := svc.Redeem(context.Background(), RedeemInput{
		CampaignID: campaignID, Code: codeValue, Email: "a@example.com",
	}); err != nil {
		t.Fatalf("redemption at the expiry instant must succeed: %v", err)
	}
}

func TestRedeemNormalizesCode(t *testing.T) {
	store := newFakeStore()
	campaignID, _ := activeFixture(store)
	svc := NewRedemptionService(store, nil)

	if _, err := svc.Redeem(context.Background(), RedeemInput{
		CampaignID: campaignID, Code: "  abcd1234  ", Email: "A@Example.Com",
	}); err != nil {
		t.Fatalf("lowercase/padded input must normalize: %v", err)
	}

	if _, ok := store.users["a@example.com"]; !ok {
		t.Fatal("email was not normalized to lowercase")
	}
}
