package elasticity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/pricing-atlas/pkg/adapters"
	"github.com/de-tools/pricing-atlas/pkg/models/api"
	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/de-tools/pricing-atlas/pkg/store/dataset"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	primaryPath  = "/price-elasticity"
	fallbackPath = "/price-elasticity/from-data"

	DefaultPriceColumn     = "price"
	DefaultTimeout         = 30 * time.Second
	DefaultFallbackTimeout = 60 * time.Second
)

// Querier obtains a normalized elasticity curve for one selection.
type Querier interface {
	Query(
		ctx context.Context,
		sel domain.EntitySelection,
		sessionID string,
		sweep domain.SweepParams,
	) (domain.ElasticityCurve, error)
}

type TransportConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewTransport builds the HTTP client shared by all sessions talking to one service.
func NewTransport(cfg TransportConfig) *resty.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return client
}

type Options struct {
	PriceColumn     string
	FallbackTimeout time.Duration
}

// Client queries the pricing service for one results session. When the
// service has lost the session state it recomputes once from the cached dataset.
type Client struct {
	http            *resty.Client
	cache           *dataset.Cache
	normalizer      *Normalizer
	priceColumn     string
	fallbackTimeout time.Duration
}

func NewClient(transport *resty.Client, cache *dataset.Cache, normalizer *Normalizer, opts Options) *Client {
	if opts.PriceColumn == "" {
		opts.PriceColumn = DefaultPriceColumn
	}
	if opts.FallbackTimeout <= 0 {
		opts.FallbackTimeout = DefaultFallbackTimeout
	}
	if normalizer == nil {
		normalizer = NewNormalizer(DefaultEpsilon, nil)
	}
	return &Client{
		http:            transport,
		cache:           cache,
		normalizer:      normalizer,
		priceColumn:     opts.PriceColumn,
		fallbackTimeout: opts.FallbackTimeout,
	}
}

func (c *Client) Query(
	ctx context.Context,
	sel domain.EntitySelection,
	sessionID string,
	sweep domain.SweepParams,
) (domain.ElasticityCurve, error) {
	logger := zerolog.Ctx(ctx).With().
		Strs("group_values", sel.GroupValues).
		Str("month", sel.Month).
		Logger()

	if err := sel.Validate(); err != nil {
		return domain.ElasticityCurve{}, &QueryError{Kind: KindUnknown, Message: err.Error(), Err: err}
	}

	curve, err := c.queryPrimary(ctx, sel, sessionID, sweep)
	if err == nil {
		return c.normalizer.Normalize(curve), nil
	}
	if KindOf(err) != KindSessionExpired {
		return domain.ElasticityCurve{}, err
	}

	src, ok := c.cache.Source()
	if !ok {
		logger.Warn().Msg("session data expired and no cached dataset is available")
		return domain.ElasticityCurve{}, &QueryError{
			Kind:    KindMissingSession,
			Message: "session data expired and no dataset is cached for recomputation",
			Err:     err,
		}
	}

	logger.Info().Str("file", src.Name).Msg("session data expired, recomputing from cached dataset")
	curve, err = c.queryFallback(ctx, sel, src, sweep)
	if err != nil {
		var qe *QueryError
		if errors.As(err, &qe) && qe.Kind == KindSessionExpired {
			qe.Kind = KindMissingSession
		}
		logger.Error().Err(err).Msg("recomputation from cached dataset failed")
		return domain.ElasticityCurve{}, err
	}
	return c.normalizer.Normalize(curve), nil
}

func (c *Client) queryPrimary(
	ctx context.Context,
	sel domain.EntitySelection,
	sessionID string,
	sweep domain.SweepParams,
) (domain.ElasticityCurve, error) {
	form := url.Values{}
	form.Set("session_id", sessionID)
	for i := range sel.GroupKeys {
		form.Add("group_keys", sel.GroupKeys[i])
		form.Add("group_values", sel.GroupValues[i])
	}
	form.Set("month", sel.Month)
	form.Set("price_col", c.priceColumn)
	form.Set("sweep_pct", strconv.FormatFloat(sweep.Percent, 'f', -1, 64))
	form.Set("num_points", strconv.Itoa(sweep.Points))

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(primaryPath)
	return decodeResponse(resp, err)
}

func (c *Client) queryFallback(
	ctx context.Context,
	sel domain.EntitySelection,
	src dataset.Source,
	sweep domain.SweepParams,
) (domain.ElasticityCurve, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fallbackTimeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(api.FallbackRequest{
			FileName:       src.Name,
			FileContentB64: src.Encoded(),
			GroupKeys:      sel.GroupKeys,
			GroupValues:    sel.GroupValues,
			Month:          sel.Month,
			PriceColumn:    c.priceColumn,
			SweepPercent:   sweep.Percent,
			NumPoints:      sweep.Points,
		}).
		Post(fallbackPath)
	return decodeResponse(resp, err)
}

func decodeResponse(resp *resty.Response, err error) (domain.ElasticityCurve, error) {
	if err != nil {
		return domain.ElasticityCurve{}, &QueryError{Kind: KindUnknown, Message: err.Error(), Err: err}
	}

	if resp.IsError() {
		var body api.ServiceError
		_ = json.Unmarshal(resp.Body(), &body)
		msg := firstNonEmpty(body.Detail, body.Error, body.Message, strings.TrimSpace(string(resp.Body())), resp.Status())
		return domain.ElasticityCurve{}, &QueryError{
			Kind:    Classify(body.Code, msg),
			Status:  resp.StatusCode(),
			Message: msg,
		}
	}

	var out api.ElasticityResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return domain.ElasticityCurve{}, &QueryError{
			Kind:    KindUnknown,
			Status:  resp.StatusCode(),
			Message: fmt.Sprintf("failed to decode pricing response: %v", err),
			Err:     err,
		}
	}
	if out.Error != "" {
		return domain.ElasticityCurve{}, &QueryError{
			Kind:    Classify(out.Code, out.Error),
			Status:  resp.StatusCode(),
			Message: out.Error,
		}
	}
	if len(out.Curve) == 0 {
		return domain.ElasticityCurve{}, &QueryError{
			Kind:    KindUnknown,
			Status:  resp.StatusCode(),
			Message: "pricing service returned an empty curve",
		}
	}
	return adapters.MapElasticityResponseToDomain(out), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
