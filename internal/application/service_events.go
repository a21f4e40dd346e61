package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bhavishyjain/SevaAI/internal/domain"
)

// HandleComplaintClassified consumes a classifier result published on the
// complaint.classified topic. Both an event envelope with a data field and
// a bare payload are accepted. Non-complaint classifications are ignored.
func (s *Service) HandleComplaintClassified(ctx context.Context, payload []byte) (domain.Ticket, bool, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return domain.Ticket{}, false, fmt.Errorf("%w: malformed classification payload", domain.ErrInvalidInput)
	}
	body := payload
	if len(envelope.Data) > 0 {
		body = envelope.Data
	}
	var input ClassifiedComplaintInput
	if err := json.Unmarshal(body, &input); err != nil {
		return domain.Ticket{}, false, fmt.Errorf("%w: malformed classification payload", domain.ErrInvalidInput)
	}
	if input.Classification.Type != domain.ClassificationNewComplaint {
		return domain.Ticket{}, false, nil
	}
	ticket, err := s.CreateFromClassification(ctx, SystemActor, input)
	if err != nil {
		return domain.Ticket{}, false, err
	}
	return ticket, true, nil
}
