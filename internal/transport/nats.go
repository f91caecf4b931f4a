package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/handlers"
	"github.com/avvvet/community-intent/internal/models"
)

// CommandProcessor is satisfied by handlers.CommandHandler
type CommandProcessor interface {
	ProcessCommand(ctx context.Context, request *models.CommandRequest) (*models.CommandResponse, error)
}

// Options configures the NATS listener
type Options struct {
	URL            string
	Name           string
	Subject        string
	QueueGroup     string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

type NATSTransport struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	opts    Options
	handler CommandProcessor
	logger  *zap.Logger
}

func NewNATSTransport(opts Options, handler CommandProcessor, logger *zap.Logger) (*NATSTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := Connect(opts.URL, opts.Name, opts.ConnectTimeout, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("connected to NATS", zap.String("url", opts.URL))

	return &NATSTransport{
		conn:    conn,
		opts:    opts,
		handler: handler,
		logger:  logger,
	}, nil
}

// Connect dials NATS with unlimited reconnects
func Connect(url, name string, timeout time.Duration, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// Start joins the queue group so replicas share the subject
func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.QueueSubscribe(nt.opts.Subject, nt.opts.QueueGroup, nt.handleCommandRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.opts.Subject, err)
	}
	nt.sub = sub

	nt.logger.Info("subscribed",
		zap.String("subject", nt.opts.Subject),
		zap.String("queue", nt.opts.QueueGroup),
	)
	return nil
}

func (nt *NATSTransport) handleCommandRequest(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), nt.opts.RequestTimeout)
	defer cancel()

	data := HandleData(ctx, nt.handler, msg.Data, nt.logger)
	if err := msg.Respond(data); err != nil {
		nt.logger.Error("failed to send response", zap.Error(err))
	}
}

// HandleData decodes one request, runs it and encodes the reply. It always
// returns a response body, even for undecodable input.
func HandleData(ctx context.Context, handler CommandProcessor, data []byte, logger *zap.Logger) []byte {
	var request models.CommandRequest
	if err := json.Unmarshal(data, &request); err != nil {
		logger.Warn("invalid request payload", zap.Error(err))
		return encode(handlers.ErrorResponse(nil, models.ErrorParseError, "Invalid request format"), logger)
	}

	start := time.Now()
	response, err := handler.ProcessCommand(ctx, &request)
	if err != nil {
		logger.Error("failed to process command", zap.String("session_id", request.SessionID), zap.Error(err))
		code := models.ErrorInternal
		if errors.Is(err, context.DeadlineExceeded) {
			code = models.ErrorRequestTimedOut
		}
		return encode(handlers.ErrorResponse(&request, code, err.Error()), logger)
	}

	logger.Info("response ready",
		zap.String("session_id", response.SessionID),
		zap.String("intent", string(response.Intent)),
		zap.Bool("success", response.Success),
		zap.Duration("took", time.Since(start)),
	)
	return encode(response, logger)
}

func encode(response *models.CommandResponse, logger *zap.Logger) []byte {
	data, err := json.Marshal(response)
	if err != nil {
		logger.Error("failed to marshal response", zap.Error(err))
		return []byte(`{"success":false,"intent":"general","message":"","action_executed":false,"confidence":0,"error_code":"INTERNAL_ERROR"}`)
	}
	return data
}

// SendCommand issues one request-reply round trip
func SendCommand(ctx context.Context, conn *nats.Conn, subject string, request *models.CommandRequest) (*models.CommandResponse, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reply, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", subject, err)
	}

	var response models.CommandResponse
	if err := json.Unmarshal(reply.Data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &response, nil
}

// Close drains the subscription before closing the connection
func (nt *NATSTransport) Close() error {
	if nt.conn == nil {
		return nil
	}
	if err := nt.conn.Drain(); err != nil {
		nt.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	nt.logger.Info("NATS connection closed")
	return nil
}
