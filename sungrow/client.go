package sungrow

import (
	"bufio"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/naturalnetworks/sungrow-bridge/config"
	"github.com/naturalnetworks/sungrow-bridge/logger"
)

// Client polls a Sungrow inverter over the WiNet-S WebSocket interface.
// Every GetData call opens a fresh connection, performs the connect/token
// handshake, requests the realtime snapshot and closes the connection.
type Client struct {
	cfg     config.SungrowConfig
	timeout time.Duration
	// Label properties endpoint; the device serves these over plain HTTP.
	// Overridable so tests can point it at a local server.
	i18nURL string
}

type request struct {
	Lang    string `json:"lang"`
	Token   string `json:"token"`
	Service string `json:"service"`
	DevID   string `json:"dev_id,omitempty"`
}

type response struct {
	ResultCode int        `json:"result_code"`
	ResultMsg  string     `json:"result_msg"`
	ResultData resultData `json:"result_data"`
}

type resultData struct {
	Service string `json:"service"`
	Token   string `json:"token"`
	List    []item `json:"list"`
	Count   int    `json:"count"`
}

type item struct {
	DataName  string `json:"data_name"`
	DataValue string `json:"data_value"`
	DataUnit  string `json:"data_unit"`
}

// NewClient creates a client for the inverter described by cfg.
func NewClient(cfg config.SungrowConfig) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("sungrow host cannot be empty")
	}

	return &Client{
		cfg:     cfg,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		i18nURL: fmt.Sprintf("http://%s/i18n/en_US.properties", cfg.Host),
	}, nil
}

// GetData returns the current snapshot as a map from reading name to Reading.
func (c *Client) GetData() (map[string]Reading, error) {
	labels := c.fetchLabels()

	url := fmt.Sprintf("ws://%s:%d/ws/home/overview", c.cfg.Host, c.cfg.Port)
	dialer := websocket.Dialer{HandshakeTimeout: c.timeout}

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to inverter at %s: %w", url, err)
	}
	defer conn.Close()

	token, err := c.connect(conn)
	if err != nil {
		return nil, err
	}

	items, err := c.query(conn, token, "real")
	if err != nil {
		return nil, err
	}

	// Hybrid units carry battery measurements in a separate service; units
	// without a battery reject the query, which is not an error.
	battery, err := c.query(conn, token, "real_battery")
	if err != nil {
		logger.Debug("no battery data from %s: %v", c.cfg.Host, err)
	} else {
		items = append(items, battery...)
	}

	readings := make(map[string]Reading, len(items))
	for _, it := range items {
		readings[readingName(it.DataName)] = Reading{
			Value: readingValue(it.DataValue),
			Desc:  readingDesc(labels, it.DataName, it.DataUnit),
		}
	}

	return readings, nil
}

// connect performs the initial handshake and returns the session token.
func (c *Client) connect(conn *websocket.Conn) (string, error) {
	resp, err := c.roundTrip(conn, request{Lang: "en_us", Service: "connect"})
	if err != nil {
		return "", fmt.Errorf("connect handshake failed: %w", err)
	}
	if resp.ResultData.Token == "" {
		return "", fmt.Errorf("connect handshake returned no token")
	}
	return resp.ResultData.Token, nil
}

// query requests one realtime service ("real" or "real_battery").
func (c *Client) query(conn *websocket.Conn, token, service string) ([]item, error) {
	resp, err := c.roundTrip(conn, request{Lang: "en_us", Token: token, Service: service, DevID: "1"})
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", service, err)
	}
	return resp.ResultData.List, nil
}

func (c *Client) roundTrip(conn *websocket.Conn, req request) (*response, error) {
	conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := conn.WriteJSON(req); err != nil {
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(c.timeout))
	var resp response
	if err := conn.ReadJSON(&resp); err != nil {
		return nil, err
	}

	if resp.ResultCode != 1 {
		return nil, fmt.Errorf("device returned code %d: %s", resp.ResultCode, resp.ResultMsg)
	}
	return &resp, nil
}

// fetchLabels loads the device's i18n properties file mapping data names to
// display labels. A failed fetch degrades to derived labels, not an error.
func (c *Client) fetchLabels() map[string]string {
	labels := make(map[string]string)

	httpc := &http.Client{Timeout: c.timeout}
	resp, err := httpc.Get(c.i18nURL)
	if err != nil {
		logger.Warn("failed to fetch i18n labels from %s: %v", c.i18nURL, err)
		return labels
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("i18n label fetch returned status %d", resp.StatusCode)
		return labels
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		labels[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return labels
}

// readingName derives the internal lookup key from the i18n data name, e.g.
// I18N_COMMON_TOTAL_ACTIVE_POWER -> total_active_power.
func readingName(dataName string) string {
	s := strings.TrimPrefix(dataName, "I18N_")
	s = strings.TrimPrefix(s, "COMMON_")
	return strings.ToLower(s)
}

// readingValue converts the device's string value: numeric strings become
// float64, everything else (including the Unavailable sentinel) stays a
// string.
func readingValue(raw string) interface{} {
	if raw == Unavailable {
		return Unavailable
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// readingDesc builds the display label, preferring the device's i18n label
// and appending the unit in parentheses when present.
func readingDesc(labels map[string]string, dataName, unit string) string {
	desc, ok := labels[dataName]
	if !ok {
		desc = fallbackLabel(dataName)
	}
	if unit != "" {
		desc = fmt.Sprintf("%s (%s)", desc, unit)
	}
	return desc
}

// fallbackLabel derives a readable label from the data name when the i18n
// table has no entry, e.g. I18N_COMMON_TOTAL_ACTIVE_POWER -> Total Active Power.
func fallbackLabel(dataName string) string {
	words := strings.Split(readingName(dataName), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
