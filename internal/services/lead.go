package services

import (
	"context"
	"log"
	"strings"

	"github.com/aaaiserr1401/smart-mabel-kz/internal/domain"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/metrics"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/store"
	apperrors "github.com/aaaiserr1401/smart-mabel-kz/pkg/errors"
)

// MsgFillNameAndPhone is the user-facing validation message for a
// submission missing name or phone.
const MsgFillNameAndPhone = "Пожалуйста, заполните имя и телефон."

// LeadNotifier delivers a new-lead event to the messaging channels
type LeadNotifier interface {
	Notify(lead *domain.Lead)
}

// SubmitInput is a raw form submission
type SubmitInput struct {
	Name    string
	Phone   string
	Comment string
	// UTM is the campaign tag already resolved by the handler: query
	// parameter first, form field as fallback.
	UTM      string
	Referrer string
	// Honeypot is the hidden "website" field; humans leave it empty.
	Honeypot string
}

// SubmitResult classifies the outcome of a submission
type SubmitResult int

const (
	// SubmitStored means one lead row was written and notifications dispatched
	SubmitStored SubmitResult = iota
	// SubmitDiscarded means the honeypot tripped; nothing was written and the
	// caller must respond exactly as on success
	SubmitDiscarded
	// SubmitInvalid means validation failed; nothing was written
	SubmitInvalid
)

// LeadService handles lead form submissions
type LeadService struct {
	store    *store.LeadStore
	notifier LeadNotifier
}

// NewLeadService creates a new lead service
func NewLeadService(store *store.LeadStore, notifier LeadNotifier) *LeadService {
	return &LeadService{
		store:    store,
		notifier: notifier,
	}
}

// Submit validates and stores a form submission, then dispatches the
// notification asynchronously. The lead row is durable before the dispatcher
// fires; dispatcher outcome never affects the result.
func (s *LeadService) Submit(ctx context.Context, in SubmitInput) (SubmitResult, *domain.Lead, error) {
	if strings.TrimSpace(in.Honeypot) != "" {
		// Bots get a success-shaped no-op: no row, no notification, no error
		log.Printf("[LEAD] Honeypot tripped, submission discarded")
		metrics.RecordHoneypot()
		return SubmitDiscarded, nil, nil
	}

	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	if name == "" || phone == "" {
		log.Printf("[LEAD] Submission rejected: empty name or phone")
		metrics.RecordLeadRejected()
		return SubmitInvalid, nil, apperrors.New(apperrors.ErrCodeValidation, MsgFillNameAndPhone)
	}

	lead := &domain.Lead{
		Name:    name,
		Phone:   phone,
		Comment: strings.TrimSpace(in.Comment),
		Status:  domain.StatusNew,
	}
	if utm := strings.TrimSpace(in.UTM); utm != "" {
		lead.UTM = &utm
	}
	if ref := strings.TrimSpace(in.Referrer); ref != "" {
		lead.Referrer = &ref
	}

	if err := s.store.Insert(ctx, lead); err != nil {
		log.Printf("[LEAD] Submit failed: database error: %v", err)
		return SubmitInvalid, nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to save lead", err)
	}

	log.Printf("[LEAD] Submit successful: id=%d", lead.ID)
	metrics.RecordLeadSubmitted()

	// Notify best-effort after the write is durable; failures are handled
	// and swallowed inside the notifier
	go s.notifier.Notify(lead)

	return SubmitStored, lead, nil
}
