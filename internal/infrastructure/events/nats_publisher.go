package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

const DefaultSubjectPrefix = "claimflow.assessment.stage_changed"

// NATSPublisher publishes stage_changed on <prefix>.<to stage> so consumers
// can subscribe to a single target stage or to <prefix>.> for all of them.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

var _ ports.StageEventPublisher = (*NATSPublisher)(nil)

func ConnectNATS(ctx context.Context, url string, prefix string) (*NATSPublisher, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "events.nats"))
	conn, err := nats.Connect(url,
		nats.Name("claimflow"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn(logCtx, "nats disconnected", slog.Any("err", errs.Loggable(err)))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info(logCtx, "nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %q", url)
	}

	logging.Info(logCtx, "nats connected", slog.String("url", conn.ConnectedUrl()))
	return NewNATSPublisher(conn, prefix), nil
}

func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) PublishStageChanged(ctx context.Context, event domain.StageChanged) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "encode stage_changed")
	}

	msg := nats.NewMsg(Subject(p.prefix, event.To))
	msg.Data = payload
	msg.Header.Set("Assessment-Id", event.AssessmentID)
	msg.Header.Set("Transition", domain.TransitionTag(event.From, event.To))
	if err := p.conn.PublishMsg(msg); err != nil {
		return errs.Wrapf(err, "publish %s", msg.Subject)
	}
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return errs.Wrap(err, "drain nats")
	}
	return nil
}

func Subject(prefix string, to domain.Stage) string {
	return prefix + "." + string(to)
}
