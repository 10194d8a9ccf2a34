package foxess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/foxess-cli/foxess/pkg/common"
	"github.com/foxess-cli/foxess/pkg/log"
	"github.com/foxess-cli/foxess/pkg/types"
)

const (
	// DefaultBaseURL is the FoxESS cloud open API endpoint.
	DefaultBaseURL = "https://www.foxesscloud.com"
	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second

	deviceListPath = "/op/v0/device/list"
	realQueryPath  = "/op/v0/device/real/query"
)

// RealTimeVariables are requested from the real-time query endpoint.
var RealTimeVariables = []string{
	"generationPower",
	"feedinPower",
	"gridConsumptionPower",
	"loadsPower",
	"batChargePower",
	"batDischargePower",
	"SoC",
	"batTemperature",
	"ambientTemperation",
	"invTemperation",
	"meterPower2",
	"pvPower",
}

// Client talks to the FoxESS cloud open API.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	token   string
	now     func() time.Time
}

// New returns a Client for apiKey. An empty baseURL or zero timeout uses the
// defaults.
func New(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:  common.HTTPClient(timeout),
		baseURL: baseURL,
		apiKey:  apiKey,
		now:     time.Now,
	}
}

// Authenticate sets the session token. The open API accepts the API key
// itself as the token so no login request is made.
func (c *Client) Authenticate(ctx context.Context) {
	log.Ctx(ctx).DebugContext(ctx, "setting api key as token")
	c.token = c.apiKey
}

// TestAuthentication authenticates and issues a device list request. It
// returns false on any error.
func (c *Client) TestAuthentication(ctx context.Context) bool {
	log.Ctx(ctx).DebugContext(ctx, "testing authentication")
	c.Authenticate(ctx)
	if _, err := c.FetchDeviceList(ctx); err != nil {
		log.Ctx(ctx).DebugContext(ctx, "authentication test failed", slog.Any("error", err))
		return false
	}
	return true
}

type deviceListRequest struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
}

// FetchDeviceList returns the first page of devices on the account.
func (c *Client) FetchDeviceList(ctx context.Context) ([]types.Device, error) {
	log.Ctx(ctx).DebugContext(ctx, "fetching device list")

	var res types.DeviceList
	if err := c.doRequest(ctx, deviceListPath, deviceListRequest{CurrentPage: 1, PageSize: 10}, &res); err != nil {
		return nil, err
	}
	if res.Data == nil {
		return []types.Device{}, nil
	}
	return res.Data, nil
}

type realQueryRequest struct {
	DeviceSN  string   `json:"deviceSN"`
	Variables []string `json:"variables"`
}

// FetchRealData returns the current value of RealTimeVariables for deviceSN.
func (c *Client) FetchRealData(ctx context.Context, deviceSN string) ([]types.DataPoint, error) {
	log.Ctx(ctx).DebugContext(ctx, "fetching real-time data", slog.String("deviceSN", deviceSN))

	var res []types.DeviceRealData
	if err := c.doRequest(ctx, realQueryPath, realQueryRequest{DeviceSN: deviceSN, Variables: RealTimeVariables}, &res); err != nil {
		return nil, err
	}
	for _, d := range res {
		if d.DeviceSN == deviceSN {
			return d.Datas, nil
		}
	}
	return nil, &NotFoundError{DeviceSN: deviceSN}
}

func (c *Client) newPostJSONRequest(ctx context.Context, endpoint string, data interface{}) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, endpoint string) {
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	signature := Sign(endpoint, c.token, timestamp)

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US;q=0.9,en;q=0.8")
	req.Header.Set("lang", "en")
	req.Header.Set("timezone", "UTC")
	req.Header.Set("timestamp", timestamp)
	req.Header.Set("signature", signature)
	if c.token != "" {
		req.Header.Set("token", c.token)
	}

	log.Ctx(ctx).DebugContext(ctx, "setting up headers",
		slog.String("path", endpoint),
		slog.String("timestamp", timestamp),
		slog.String("signature", signature),
	)
}

type foxessResponse struct {
	Errno  int             `json:"errno"`
	Msg    string          `json:"msg"`
	Result json.RawMessage `json:"result"`
}

func (c *Client) doRequest(ctx context.Context, endpoint string, data, dest interface{}) error {
	req, err := c.newPostJSONRequest(ctx, endpoint, data)
	if err != nil {
		return err
	}
	c.setHeaders(ctx, req, endpoint)

	log.Ctx(ctx).DebugContext(ctx, "fetching", slog.String("url", req.URL.String()))
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	log.Ctx(ctx).DebugContext(ctx, "response received", slog.Int("status", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Ctx(ctx).DebugContext(ctx, "error response", slog.String("body", string(body)))
		text := string(body)
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return &HTTPError{StatusCode: resp.StatusCode, Body: text}
	}

	var fr foxessResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		log.Ctx(ctx).DebugContext(ctx, "failed to decode foxess response", slog.Any("error", err), slog.String("body", string(body)))
		return fmt.Errorf("failed to decode foxess response: %w", err)
	}

	if fr.Errno != 0 {
		return &ServerError{Code: fr.Errno, Msg: fr.Msg}
	}

	if dest == nil || len(fr.Result) == 0 || string(fr.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(fr.Result, dest); err != nil {
		return fmt.Errorf("failed to decode foxess result: %w", err)
	}
	return nil
}
