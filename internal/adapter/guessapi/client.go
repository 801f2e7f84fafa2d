package guessapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/talkinator/internal/observability/telemetry"
)

const (
	DefaultHostTemplate = "http://%s.akinator.com"

	newSessionPath = "/new_session.php"
	answerPath     = "/repondre_propose.php"
)

// Config selects the remote host. BaseURL, when set, wins over the
// per-language HostTemplate.
type Config struct {
	BaseURL      string
	HostTemplate string
}

// Client speaks the HTTP protocol of the remote guessing engine
type Client struct {
	http   *circuitbreaker.HTTPClient
	cfg    Config
	tracer trace.Tracer
	log    *zap.Logger
}

func NewClient(cfg Config, httpClient *circuitbreaker.HTTPClient, log *zap.Logger) *Client {
	if cfg.HostTemplate == "" {
		cfg.HostTemplate = DefaultHostTemplate
	}
	return &Client{
		http:   httpClient,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/seu-repo/talkinator/internal/adapter/guessapi"),
		log:    log,
	}
}

func (c *Client) NewSession(ctx context.Context, req domain.NewSessionRequest) ([]byte, error) {
	params := url.Values{
		"age":        {strconv.Itoa(req.Age)},
		"email":      {""},
		"engine":     {"0"},
		"joueur":     {req.Name},
		"ms":         {"0"},
		"partner_id": {"0"},
		"prio":       {"0"},
		"remember":   {"0"},
		"sexe":       {string(req.Gender)},
	}
	return c.get(ctx, "new_session", c.endpoint(req.Language, newSessionPath, params))
}

func (c *Client) Answer(ctx context.Context, req domain.StepRequest) ([]byte, error) {
	params := url.Values{
		"engine":     {"0"},
		"fq":         {""},
		"nqp":        {strconv.Itoa(req.Step)},
		"partie":     {req.PartyID},
		"prio":       {"0"},
		"reponse":    {req.Answer.String()},
		"signature":  {req.Signature},
		"step_prop":  {"-1"},
		"trouvitude": {"0"},
	}
	return c.get(ctx, "answer", c.endpoint(req.Language, answerPath, params))
}

func (c *Client) endpoint(language, path string, params url.Values) string {
	base := c.cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf(c.cfg.HostTemplate, language)
	}
	return strings.TrimRight(base, "/") + path + "?" + params.Encode()
}

func (c *Client) get(ctx context.Context, kind, endpoint string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "guessapi."+kind,
		trace.WithAttributes(attribute.String("guess.request", kind)),
	)
	defer span.End()

	start := time.Now()
	body, err := c.http.GetBody(ctx, endpoint)
	telemetry.GuessLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.GuessRequestsTotal.WithLabelValues(kind, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Error("Guessing service request failed",
			zap.String("kind", kind),
			zap.Error(err),
		)
		return nil, fmt.Errorf("guessing service %s: %w", kind, err)
	}

	telemetry.GuessRequestsTotal.WithLabelValues(kind, "ok").Inc()
	span.SetAttributes(attribute.Int("guess.response_bytes", len(body)))
	c.log.Debug("Guessing service response",
		zap.String("kind", kind),
		zap.Int("bytes", len(body)),
		zap.Duration("latency", time.Since(start)),
	)
	return body, nil
}
