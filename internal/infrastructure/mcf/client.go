// Package mcf provides RemoteClient implementations for the multi-channel
// fulfillment provider: a live SigV4-signed HTTP client and a deterministic
// simulated provider for local runs.
package mcf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	infraconfig "github.com/erp/fulfillment/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure Client implements RemoteClient
var _ fulfillment.RemoteClient = (*Client)(nil)

// SigningService is the SigV4 service name used for every request.
const SigningService = "mws"

// Provider API sections and versions.
const (
	inventorySection = "FulfillmentInventory"
	inventoryVersion = "2010-10-01"
	outboundSection  = "FulfillmentOutboundShipment"
	outboundVersion  = "2010-10-01"
)

// Error codes raised by the client itself rather than the provider.
const (
	ErrCodeTransport         = "TransportError"
	ErrCodeMalformedResponse = "MalformedResponse"
	ErrCodeSigning           = "SigningError"
)

// Client calls the provider API over HTTPS. Request and response bodies are
// JSON; every request is signed with AWS Signature Version 4.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *v4.Signer
	creds      aws.CredentialsProvider
	region     string
	userAgent  string
	now        func() time.Time
	logger     *zap.Logger
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCredentials sets an explicit credentials provider
func WithCredentials(p aws.CredentialsProvider) ClientOption {
	return func(c *Client) {
		c.creds = p
	}
}

// WithClock sets the clock used for signing timestamps
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a live client from configuration. Static keys are used
// when both access key id and secret are configured; otherwise credentials
// come from the default AWS chain (environment, shared config, instance role).
func NewClient(ctx context.Context, cfg infraconfig.MCFConfig, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	region := cfg.SigningRegion
	if region == "" {
		region = "us-east-1"
	}

	c := &Client{
		baseURL:    cfg.EndpointURL(),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		signer:     v4.NewSigner(),
		region:     region,
		userAgent:  "mcf-fulfillment/1.0 (Language=Go)",
		now:        time.Now,
		logger:     logger.Named("mcf_client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == "" {
		return nil, errors.New("mcf endpoint is required")
	}

	if c.creds == nil {
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			c.creds = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")
		} else {
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
			if err != nil {
				return nil, fmt.Errorf("failed to load AWS credentials: %w", err)
			}
			c.creds = awsCfg.Credentials
		}
	}
	c.creds = aws.NewCredentialsCache(c.creds)

	c.logger.Info("MCF client initialized",
		zap.String("endpoint", c.baseURL),
		zap.String("signing_region", c.region),
	)
	return c, nil
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

type listInventorySupplyRequest struct {
	SellerID           string     `json:"SellerId"`
	SellerSKUs         []string   `json:"SellerSkus,omitempty"`
	QueryStartDateTime *time.Time `json:"QueryStartDateTime,omitempty"`
	ResponseGroup      string     `json:"ResponseGroup"`
}

type nextTokenRequest struct {
	SellerID  string `json:"SellerId"`
	NextToken string `json:"NextToken"`
}

// ListInventorySupply lists supply for the given SKUs, or for everything
// changed since query.Since.
func (c *Client) ListInventorySupply(ctx context.Context, query fulfillment.SupplyQuery) (*fulfillment.SupplyList, error) {
	req := listInventorySupplyRequest{
		SellerID:      query.SellerID,
		SellerSKUs:    query.SellerSKUs,
		ResponseGroup: "Basic",
	}
	if query.Since != nil {
		since := query.Since.UTC()
		req.QueryStartDateTime = &since
	}

	var out fulfillment.SupplyList
	if err := c.do(ctx, inventorySection, inventoryVersion, "ListInventorySupply", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInventorySupplyByNextToken fetches the next page of a supply listing.
func (c *Client) ListInventorySupplyByNextToken(ctx context.Context, sellerID, nextToken string) (*fulfillment.SupplyList, error) {
	var out fulfillment.SupplyList
	req := nextTokenRequest{SellerID: sellerID, NextToken: nextToken}
	if err := c.do(ctx, inventorySection, inventoryVersion, "ListInventorySupplyByNextToken", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Outbound
// ---------------------------------------------------------------------------

type orderIDRequest struct {
	SellerID                 string `json:"SellerId"`
	SellerFulfillmentOrderID string `json:"SellerFulfillmentOrderId"`
}

// CreateFulfillmentOrder submits an order for remote fulfillment.
func (c *Client) CreateFulfillmentOrder(ctx context.Context, req *fulfillment.CreateFulfillmentOrderRequest) (*fulfillment.CreateFulfillmentOrderResult, error) {
	var out fulfillment.CreateFulfillmentOrderResult
	if err := c.do(ctx, outboundSection, outboundVersion, "CreateFulfillmentOrder", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFulfillmentOrder returns the provider's view of an order.
func (c *Client) GetFulfillmentOrder(ctx context.Context, sellerID, sellerFulfillmentOrderID string) (*fulfillment.FulfillmentOrderResult, error) {
	var out fulfillment.FulfillmentOrderResult
	req := orderIDRequest{SellerID: sellerID, SellerFulfillmentOrderID: sellerFulfillmentOrderID}
	if err := c.do(ctx, outboundSection, outboundVersion, "GetFulfillmentOrder", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelFulfillmentOrder asks the provider to cancel an order.
func (c *Client) CancelFulfillmentOrder(ctx context.Context, sellerID, sellerFulfillmentOrderID string) (*fulfillment.CancelFulfillmentOrderResult, error) {
	var out fulfillment.CancelFulfillmentOrderResult
	req := orderIDRequest{SellerID: sellerID, SellerFulfillmentOrderID: sellerFulfillmentOrderID}
	if err := c.do(ctx, outboundSection, outboundVersion, "CancelFulfillmentOrder", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFulfillmentPreview returns shipping estimates per speed.
func (c *Client) GetFulfillmentPreview(ctx context.Context, req *fulfillment.FulfillmentPreviewRequest) (*fulfillment.FulfillmentPreviewResult, error) {
	var out fulfillment.FulfillmentPreviewResult
	if err := c.do(ctx, outboundSection, outboundVersion, "GetFulfillmentPreview", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// errorEnvelope is the provider's error body.
type errorEnvelope struct {
	Error struct {
		Type    string `json:"Type"`
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Error"`
	RequestID string `json:"RequestId"`
}

// do signs and sends one operation and decodes the response into out.
// Every failure is returned as a *fulfillment.RemoteError.
func (c *Client) do(ctx context.Context, section, version, action string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &fulfillment.RemoteError{ErrorCode: ErrCodeTransport, Message: fmt.Sprintf("encode %s request: %v", action, err)}
	}

	url := fmt.Sprintf("%s/%s/%s/%s", c.baseURL, section, version, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &fulfillment.RemoteError{ErrorCode: ErrCodeTransport, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if err := c.sign(ctx, req, body); err != nil {
		return &fulfillment.RemoteError{ErrorCode: ErrCodeSigning, Message: err.Error()}
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &fulfillment.RemoteError{ErrorCode: ErrCodeTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &fulfillment.RemoteError{
			StatusCode: resp.StatusCode,
			ErrorCode:  ErrCodeTransport,
			RequestID:  headerRequestID(resp),
			Message:    fmt.Sprintf("read response: %v", err),
		}
	}

	c.logger.Debug("MCF call",
		zap.String("action", action),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", c.now().Sub(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp, payload)
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return &fulfillment.RemoteError{
				StatusCode: resp.StatusCode,
				ErrorCode:  ErrCodeMalformedResponse,
				RequestID:  headerRequestID(resp),
				Message:    fmt.Sprintf("decode %s response: %v", action, err),
			}
		}
	}
	fillRequestID(out, headerRequestID(resp))
	return nil
}

// fillRequestID copies the header request id into results whose body did
// not carry one. An accepted create is recognized by its request id.
func fillRequestID(out any, id string) {
	if id == "" {
		return
	}
	var target *string
	switch v := out.(type) {
	case *fulfillment.CreateFulfillmentOrderResult:
		target = &v.RequestID
	case *fulfillment.CancelFulfillmentOrderResult:
		target = &v.RequestID
	case *fulfillment.FulfillmentOrderResult:
		target = &v.RequestID
	case *fulfillment.FulfillmentPreviewResult:
		target = &v.RequestID
	default:
		return
	}
	if *target == "" {
		*target = id
	}
}

func (c *Client) sign(ctx context.Context, req *http.Request, body []byte) error {
	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("retrieve credentials: %w", err)
	}
	sum := sha256.Sum256(body)
	return c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), SigningService, c.region, c.now())
}

func decodeError(resp *http.Response, payload []byte) error {
	remoteErr := &fulfillment.RemoteError{
		StatusCode: resp.StatusCode,
		RequestID:  headerRequestID(resp),
	}

	var env errorEnvelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Error.Code != "" {
		remoteErr.ErrorCode = env.Error.Code
		remoteErr.ErrorType = env.Error.Type
		remoteErr.Message = env.Error.Message
		if env.RequestID != "" {
			remoteErr.RequestID = env.RequestID
		}
		return remoteErr
	}

	remoteErr.ErrorCode = http.StatusText(resp.StatusCode)
	remoteErr.Message = strings.TrimSpace(string(payload))
	return remoteErr
}

func headerRequestID(resp *http.Response) string {
	if id := resp.Header.Get("x-amzn-RequestId"); id != "" {
		return id
	}
	return resp.Header.Get("x-mws-request-id")
}
