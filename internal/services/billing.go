package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/anonto42/nano-community/backend/internal/billing/kiwify"
	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/repositories"
	"github.com/rs/zerolog"
)

// DefaultPlanPeriod applies when an approved order carries no next payment date.
const DefaultPlanPeriod = 30 * 24 * time.Hour

// SalesSource lists sales for one date window.
type SalesSource interface {
	ListSales(ctx context.Context, w kiwify.Window) ([]kiwify.Sale, error)
}

// SyncReport summarises one sales sync run.
type SyncReport struct {
	Windows    int `json:"windows"`
	Sales      int `json:"sales"`
	Activated  int `json:"activated"`
	Downgraded int `json:"downgraded"`
	Skipped    int `json:"skipped"`
}

// BillingService applies payment events to account plans.
type BillingService struct {
	Accounts     repositories.AccountRepository
	Sales        SalesSource
	WebhookToken string
	PlanPeriod   time.Duration
	Now          func() time.Time
}

func (s *BillingService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *BillingService) period() time.Duration {
	if s.PlanPeriod <= 0 {
		return DefaultPlanPeriod
	}
	return s.PlanPeriod
}

// HandleWebhook verifies and applies one webhook delivery. It returns the action taken.
func (s *BillingService) HandleWebhook(ctx context.Context, body []byte, signature string) (kiwify.Action, error) {
	if !kiwify.Verify(body, signature, s.WebhookToken) {
		return kiwify.ActionIgnore, ErrInvalidSignature
	}
	var order kiwify.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return kiwify.ActionIgnore, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	action := order.Action()
	log := zerolog.Ctx(ctx).With().
		Str("order_id", order.OrderID).
		Str("event", order.WebhookEventType).
		Str("action", action.String()).
		Logger()
	if action == kiwify.ActionIgnore {
		log.Info().Msg("payment event acknowledged")
		return action, nil
	}

	expires := s.now().Add(s.period())
	if until, ok := order.PaidUntil(); ok {
		expires = until
	}
	applied, err := s.apply(ctx, order.Customer, order.OrderID, action, expires)
	if err != nil {
		return action, err
	}
	if !applied {
		log.Info().Msg("payment event had no account to apply to")
		return kiwify.ActionIgnore, nil
	}
	log.Info().Msg("payment event applied")
	return action, nil
}

// SyncSales walks the lookback in windows, accumulates every sale and then
// reconciles plans oldest first so later events win.
func (s *BillingService) SyncSales(ctx context.Context) (*SyncReport, error) {
	if s.Sales == nil {
		return nil, fmt.Errorf("%w: sales api not configured", ErrUpstream)
	}
	now := s.now()
	windows := kiwify.Windows(now, kiwify.Lookback, kiwify.WindowSpan)
	report := &SyncReport{Windows: len(windows)}

	// Adjacent windows share their boundary day, so a sale can come back twice.
	var sales []kiwify.Sale
	seen := make(map[string]bool)
	for _, w := range windows {
		batch, err := s.Sales.ListSales(ctx, w)
		if err != nil {
			return report, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		for _, sale := range batch {
			if sale.ID != "" {
				if seen[sale.ID] {
					continue
				}
				seen[sale.ID] = true
			}
			sales = append(sales, sale)
		}
	}
	report.Sales = len(sales)

	sort.SliceStable(sales, func(i, j int) bool { return sales[i].Created().Before(sales[j].Created()) })
	for _, sale := range sales {
		action := sale.Action()
		if action == kiwify.ActionIgnore {
			report.Skipped++
			continue
		}
		expires := sale.Created().Add(s.period())
		if sale.Created().IsZero() {
			expires = now.Add(s.period())
		}
		if action == kiwify.ActionActivate && !expires.After(now) {
			report.Skipped++
			continue
		}
		applied, err := s.apply(ctx, sale.Customer, sale.ID, action, expires)
		if err != nil {
			return report, err
		}
		switch {
		case !applied:
			report.Skipped++
		case action == kiwify.ActionActivate:
			report.Activated++
		default:
			report.Downgraded++
		}
	}
	return report, nil
}

// apply activates or downgrades the customer's account. Activation creates the
// account by email when missing; downgrades of unknown customers are skipped.
func (s *BillingService) apply(ctx context.Context, customer kiwify.Customer, orderID string, action kiwify.Action, expires time.Time) (bool, error) {
	email := normalizeEmail(customer.Email)
	if email == "" {
		return false, nil
	}
	account, err := s.Accounts.GetAccountByEmail(ctx, email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		if action != kiwify.ActionActivate {
			return false, nil
		}
		account = &models.Account{
			Name:          customer.DisplayName(),
			Email:         email,
			Plan:          models.PlanPro,
			PlanExpiresAt: &expires,
			KiwifyOrderID: orderID,
		}
		if err := s.Accounts.CreateAccount(ctx, account); err != nil {
			return false, err
		}
		zerolog.Ctx(ctx).Info().Uint("account_id", account.ID).Msg("account created from payment")
		return true, nil
	case err != nil:
		return false, err
	}

	if action == kiwify.ActionActivate {
		account.Plan = models.PlanPro
		account.PlanExpiresAt = &expires
	} else {
		account.Plan = models.PlanFree
		account.PlanExpiresAt = nil
	}
	account.KiwifyOrderID = orderID
	if err := s.Accounts.UpdateAccount(ctx, account); err != nil {
		return false, err
	}
	return true, nil
}
