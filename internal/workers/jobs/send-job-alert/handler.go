package sendjobalert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonerrors "iopps-workers/internal/common/errors"
	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/common/metrics"
	"iopps-workers/internal/filters"
	"iopps-workers/internal/filters/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const TaskType = "send-job-alert"

var (
	ErrInvalidInput           = errors.New("INVALID_INPUT")
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// EmailSender delivers the alert email. Implemented by aws.EmailSender.
type EmailSender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) (string, error)
}

// SMSSender delivers the alert text. Implemented by aws.SMSSender.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config       *Config
	stores       *store.Factory
	email        EmailSender
	sms          SMSSender
	logger       logger.Logger
	errorHandler *commonerrors.ErrorHandler
}

func NewHandler(config *Config, stores *store.Factory, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		stores:       stores,
		email:        email,
		sms:          sms,
		logger:       log,
		errorHandler: commonerrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job,
			commonerrors.NewVariablesDecodeError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, toStandardError(err))
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	sendEmail := input.Email != ""
	sendSMS := input.Phone != "" && h.config.SMSEnabled
	switch {
	case input.Email == "" && input.Phone == "":
		return nil, fmt.Errorf("%w: email or phone is required", ErrInvalidInput)
	case !sendEmail && !sendSMS:
		return nil, fmt.Errorf("%w: no email given and SMS alerts are disabled", ErrInvalidInput)
	}

	state := h.stores.Open(ctx, input.UserID).Filters()
	matched := filters.Evaluate(input.Jobs, state)
	metrics.ObserveFilterPass(TaskType, len(input.Jobs), len(matched))

	output := &Output{MatchedCount: len(matched)}
	if len(matched) == 0 {
		h.logger.Info("no jobs match saved filters, alert skipped", map[string]interface{}{
			"userId":     input.UserID,
			"totalCount": len(input.Jobs),
		})
		return output, nil
	}

	output.NotificationID = uuid.New().String()
	items := h.items(matched, time.Now())

	textBody, htmlBody, err := renderEmail(items, len(matched))
	if err != nil {
		return nil, err
	}

	// Channels are delivered independently; one failing does not cancel the other.
	var g errgroup.Group
	if sendEmail {
		g.Go(func() error {
			if _, err := h.email.Send(ctx, input.Email, subjectFor(len(matched)), textBody, htmlBody); err != nil {
				return &sendError{channel: "email", err: err}
			}
			output.EmailSent = true
			return nil
		})
	}
	if sendSMS {
		g.Go(func() error {
			if _, err := h.sms.Send(ctx, input.Phone, renderSMS(items, len(matched))); err != nil {
				return &sendError{channel: "sms", err: err}
			}
			output.SMSSent = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h.logger.Info("job alert sent", map[string]interface{}{
		"userId":         input.UserID,
		"notificationId": output.NotificationID,
		"matchedCount":   output.MatchedCount,
		"emailSent":      output.EmailSent,
		"smsSent":        output.SMSSent,
	})
	return output, nil
}

type sendError struct {
	channel string
	err     error
}

func (e *sendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrNotificationSendFailed, e.channel, e.err)
}

func (e *sendError) Is(target error) bool {
	return target == ErrNotificationSendFailed
}

func (e *sendError) Unwrap() error {
	return e.err
}

func toStandardError(err error) *commonerrors.StandardError {
	var send *sendError
	switch {
	case errors.As(err, &send):
		return commonerrors.NewNotificationSendFailedError(send.channel, send.err)
	case errors.Is(err, ErrInvalidInput):
		return commonerrors.NewInvalidInputError(err.Error())
	default:
		return commonerrors.Normalize(err)
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
