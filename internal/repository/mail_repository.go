package repository

import (
	"context"
	"net/http"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
)

// IdempotencyHeader carries the per-attempt key on dispatch requests.
const IdempotencyHeader = "Idempotency-Key"

type MailRepositoryInterface interface {
	SendMail(ctx context.Context, req model.SendMailRequest, idempotencyKey string) (model.SendMailResponse, error)
}

type MailRepository struct {
	Client *Client
}

func (r *MailRepository) SendMail(ctx context.Context, req model.SendMailRequest, idempotencyKey string) (model.SendMailResponse, error) {
	var out model.SendMailResponse
	err := r.Client.doJSON(ctx, "send mail", http.MethodPost, "/send-mail", nil, req, &out,
		withHeader(IdempotencyHeader, idempotencyKey))
	return out, err
}

var _ MailRepositoryInterface = (*MailRepository)(nil)
