// Package withdrawaldelivery manages delivery layer of withdrawals.
package withdrawaldelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/pagbem/withdraw-api/internal/domain"
	"github.com/pagbem/withdraw-api/internal/withdrawalservice"
	"github.com/pagbem/withdraw-api/pkg/errorspkg"
	"github.com/pagbem/withdraw-api/pkg/web"
)

// Service provides service layer interface needed by withdrawal delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package withdrawaldelivery
type Service interface {
	Withdraw(ctx context.Context, accountID string, arg withdrawalservice.WithdrawParams) (domain.Withdrawal, error)
}

// Handler facilitates withdrawal delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns withdrawal handler.
func NewHandler(s Service) Handler {
	return Handler{service: s}
}

type pixRequest struct {
	Type string `json:"type" binding:"required,oneof=email"`
	Key  string `json:"key" binding:"required,email"`
}

type createRequest struct {
	Method   string      `json:"method" binding:"required,oneof=PIX"`
	Amount   string      `json:"amount" binding:"required"`
	Pix      *pixRequest `json:"pix" binding:"required_if=Method PIX"`
	Schedule string      `json:"schedule" binding:"omitempty"`
}

type uriRequest struct {
	AccountID string `uri:"account_id" binding:"required,uuid"`
}

type withdrawalData struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"account_id"`
	Method       string  `json:"method"`
	Amount       string  `json:"amount"`
	Scheduled    bool    `json:"scheduled"`
	ScheduledFor *string `json:"scheduled_for"`
	Done         bool    `json:"done"`
	Error        bool    `json:"error"`
	ErrorReason  *string `json:"error_reason"`
}

type data struct {
	Withdrawal withdrawalData `json:"withdrawal"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

func toData(w domain.Withdrawal) withdrawalData {
	var scheduledFor *string

	if w.ScheduledFor != nil {
		s := w.ScheduledFor.Format(domain.ScheduleEchoLayout)
		scheduledFor = &s
	}

	return withdrawalData{
		ID:           w.ID,
		AccountID:    w.AccountID,
		Method:       w.Method,
		Amount:       w.Amount.StringFixed(2),
		Scheduled:    w.Scheduled,
		ScheduledFor: scheduledFor,
		Done:         w.Done,
		Error:        w.Error,
		ErrorReason:  w.ErrorReason,
	}
}

func bindErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return field.Field() + web.GetErrorMsg(field)
	}

	return "invalid request"
}

// Withdraw handles http request to create a withdrawal, immediate or scheduled.
func (h *Handler) Withdraw(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var uri uriRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	arg := withdrawalservice.WithdrawParams{
		Method:   req.Method,
		Amount:   req.Amount,
		Schedule: req.Schedule,
	}
	if req.Pix != nil {
		arg.Pix = &domain.PixKey{Type: req.Pix.Type, Key: req.Pix.Key}
	}

	withdrawal, err := h.service.Withdraw(ctx, uri.AccountID, arg)
	if err != nil {
		switch err {
		case domain.ErrAccountNotFound:
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		case domain.ErrInsufficientBalance,
			domain.ErrInvalidAmount,
			domain.ErrNonPositiveAmount,
			domain.ErrMissingPixKey,
			domain.ErrInvalidSchedule,
			domain.ErrScheduleInPast:
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{toData(withdrawal)}})
}
