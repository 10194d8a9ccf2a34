package foxess

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1700000000000)

func newTestClient(ts *httptest.Server) *Client {
	c := New("test-key", ts.URL, time.Second)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestClient(t *testing.T) {
	t.Run("Authenticate", func(t *testing.T) {
		c := New("my-key", "", 0)
		assert.Empty(t, c.token)
		c.Authenticate(context.Background())
		assert.Equal(t, "my-key", c.token)
		assert.Equal(t, DefaultBaseURL, c.baseURL)
		assert.Equal(t, DefaultTimeout, c.client.Timeout)
	})

	t.Run("Headers", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/op/v0/device/list", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "application/json, text/plain, */*", r.Header.Get("Accept"))
			assert.Equal(t, "en-US;q=0.9,en;q=0.8", r.Header.Get("Accept-Language"))
			assert.Equal(t, "en", r.Header.Get("lang"))
			assert.Equal(t, "UTC", r.Header.Get("timezone"))
			assert.Equal(t, "FoxESSCmdLine/1.0", r.Header.Get("User-Agent"))
			assert.Equal(t, "1700000000000", r.Header.Get("timestamp"))
			assert.Equal(t, "test-key", r.Header.Get("token"))
			assert.Equal(t, Sign("/op/v0/device/list", "test-key", "1700000000000"), r.Header.Get("signature"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 1.0, body["currentPage"])
			assert.Equal(t, 10.0, body["pageSize"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"errno":  0,
				"result": map[string]interface{}{"data": []interface{}{}},
			})
		}))
		defer ts.Close()

		c := newTestClient(ts)
		c.Authenticate(context.Background())
		devices, err := c.FetchDeviceList(context.Background())
		require.NoError(t, err)
		assert.Empty(t, devices)
		assert.NotNil(t, devices, "empty list should not be nil")
	})

	t.Run("No Token Header Before Authenticate", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := r.Header[http.CanonicalHeaderKey("token")]
			assert.False(t, ok, "token header should not be sent")
			assert.Equal(t, Sign("/op/v0/device/list", "", "1700000000000"), r.Header.Get("signature"))
			json.NewEncoder(w).Encode(map[string]interface{}{"errno": 0, "result": map[string]interface{}{}})
		}))
		defer ts.Close()

		_, err := newTestClient(ts).FetchDeviceList(context.Background())
		require.NoError(t, err)
	})

	t.Run("FetchDeviceList", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"errno": 0,
				"result": map[string]interface{}{
					"currentPage": 1,
					"pageSize":    10,
					"total":       2,
					"data": []map[string]interface{}{
						{"deviceSN": "SN2", "stationName": "Barn", "hasBattery": false, "hasPV": true},
						{"deviceSN": "SN1", "stationName": "Home", "stationID": "st1", "moduleSN": "M1", "deviceType": "H1", "hasBattery": true},
					},
				},
			})
		}))
		defer ts.Close()

		c := newTestClient(ts)
		c.Authenticate(context.Background())
		devices, err := c.FetchDeviceList(context.Background())
		require.NoError(t, err)
		require.Len(t, devices, 2)
		assert.Equal(t, "SN2", devices[0].DeviceSN, "server order should be kept")
		assert.True(t, devices[0].HasPV)
		assert.Equal(t, "Home", devices[1].StationName)
		assert.Equal(t, "st1", devices[1].StationID)
		assert.Equal(t, "M1", devices[1].ModuleSN)
		assert.Equal(t, "H1", devices[1].DeviceType)
		assert.True(t, devices[1].HasBattery)
	})

	t.Run("FetchRealData", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/op/v0/device/real/query", r.URL.Path)
			assert.Equal(t, Sign("/op/v0/device/real/query", "test-key", "1700000000000"), r.Header.Get("signature"))

			var body realQueryRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "SN1", body.DeviceSN)
			assert.Equal(t, RealTimeVariables, body.Variables)
			assert.Len(t, body.Variables, 12)

			json.NewEncoder(w).Encode(map[string]interface{}{
				"errno": 0,
				"result": []map[string]interface{}{
					{"deviceSN": "OTHER", "datas": []map[string]interface{}{{"variable": "SoC", "value": 1}}},
					{"deviceSN": "SN1", "datas": []map[string]interface{}{
						{"variable": "SoC", "value": 85.5, "name": "SoC", "unit": "%"},
						{"variable": "batTemperature", "value": 21.3, "name": "Battery Temperature", "unit": "℃"},
					}},
				},
			})
		}))
		defer ts.Close()

		c := newTestClient(ts)
		c.Authenticate(context.Background())
		points, err := c.FetchRealData(context.Background(), "SN1")
		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, "SoC", points[0].Variable)
		v, ok := points[0].Value.Float()
		assert.True(t, ok)
		assert.Equal(t, 85.5, v)
		assert.Equal(t, "%", points[0].Unit)
	})

	t.Run("FetchRealData Not Found", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"errno":  0,
				"result": []map[string]interface{}{{"deviceSN": "OTHER"}},
			})
		}))
		defer ts.Close()

		c := newTestClient(ts)
		c.Authenticate(context.Background())
		_, err := c.FetchRealData(context.Background(), "SN1")
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "SN1", nf.DeviceSN)
	})

	t.Run("Server Error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"errno": 41809, "msg": "illegal signature"})
		}))
		defer ts.Close()

		_, err := newTestClient(ts).FetchDeviceList(context.Background())
		var se *ServerError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 41809, se.Code)
		assert.Equal(t, "Server error 41809: illegal signature", err.Error())
	})

	t.Run("Server Error Without Message", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"errno": 40256})
		}))
		defer ts.Close()

		_, err := newTestClient(ts).FetchDeviceList(context.Background())
		require.Error(t, err)
		assert.Equal(t, "Server error 40256", err.Error())
	})

	t.Run("HTTP Error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, "unauthorized")
		}))
		defer ts.Close()

		_, err := newTestClient(ts).FetchDeviceList(context.Background())
		var he *HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.StatusCode)
		assert.Equal(t, "unauthorized", he.Body)
		assert.Equal(t, "HTTP 401: unauthorized", err.Error())
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>")
		}))
		defer ts.Close()

		_, err := newTestClient(ts).FetchDeviceList(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode foxess response")
	})

	t.Run("Transport Error", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := l.Addr().String()
		require.NoError(t, l.Close())

		c := New("k", "http://"+addr, time.Second)
		_, err = c.FetchDeviceList(context.Background())
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Contains(t, err.Error(), "URL Error: ")
		assert.NotContains(t, err.Error(), addr+"/op", "url should be stripped from the reason")
		assert.NotNil(t, errors.Unwrap(err))
	})

	t.Run("Timeout", func(t *testing.T) {
		done := make(chan struct{})
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-done
		}))
		defer ts.Close()
		defer close(done)

		c := New("k", ts.URL, 50*time.Millisecond)
		_, err := c.FetchDeviceList(context.Background())
		var te *TransportError
		require.ErrorAs(t, err, &te)
	})

	t.Run("TestAuthentication", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("token") != "good" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"errno": 0, "result": map[string]interface{}{"data": []interface{}{}}})
		}))
		defer ts.Close()

		assert.True(t, New("good", ts.URL, time.Second).TestAuthentication(context.Background()))
		assert.False(t, New("bad", ts.URL, time.Second).TestAuthentication(context.Background()))
	})
}
