package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taho/analytics/internal/engine"
	"github.com/taho/analytics/internal/store"
	"github.com/taho/analytics/pkg/logger"
)

const (
	// The exchange expires a listen key after 60 minutes without keepalive
	listenKeyKeepalive = 30 * time.Minute

	reconnectDelay    = 5 * time.Second
	maxReconnectDelay = 5 * time.Minute

	pongWait  = 3 * time.Minute
	writeWait = 10 * time.Second
)

// Stream consumes the Binance Futures user-data websocket and lands fills
// in the record store as they happen. Streamed records carry the same
// exchange ids as REST-collected ones, so the periodic REST sweep backfills
// anything missed during reconnects without duplication.
type Stream struct {
	client *Client
	store  RecordStore
	logger *logger.Logger

	conn   *websocket.Conn
	connMu sync.RWMutex

	listenKey string

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewStream creates a user-data stream consumer
func NewStream(client *Client, st RecordStore, log *logger.Logger) *Stream {
	return &Stream{
		client: client,
		store:  st,
		logger: log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start connects the stream and launches the read and keepalive loops
func (s *Stream) Start(ctx context.Context) error {
	s.logger.Info("Starting user-data stream")

	if err := s.connect(ctx); err != nil {
		return fmt.Errorf("initial connection failed: %w", err)
	}

	go s.readLoop(ctx)
	go s.keepaliveLoop(ctx)

	return nil
}

// Stop closes the stream and waits for the read loop to exit
func (s *Stream) Stop() {
	s.logger.Info("Stopping user-data stream")

	close(s.stopCh)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()

	<-s.doneCh
}

// createListenKey requests a fresh user-data listen key.
// The endpoint needs the API key header but no signature.
func (s *Stream) createListenKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.client.cfg.BaseURL+"/fapi/v1/listenKey", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", s.client.cfg.APIKey)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("listen key request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("listen key status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		ListenKey string `json:"listenKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode listen key: %w", err)
	}

	return out.ListenKey, nil
}

// renewListenKey extends the current listen key's lifetime
func (s *Stream) renewListenKey(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		s.client.cfg.BaseURL+"/fapi/v1/listenKey", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", s.client.cfg.APIKey)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keepalive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("keepalive status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func (s *Stream) connect(ctx context.Context) error {
	key, err := s.createListenKey(ctx)
	if err != nil {
		return err
	}
	s.listenKey = key

	wsURL := fmt.Sprintf("%s/ws/%s", s.client.cfg.WSBaseURL, url.PathEscape(key))

	s.connMu.Lock()
	defer s.connMu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	s.conn = conn
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPingHandler(func(payload string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return s.conn.WriteControl(websocket.PongMessage, []byte(payload),
			time.Now().Add(writeWait))
	})

	s.logger.Info("Connected to user-data stream")
	return nil
}

func (s *Stream) readLoop(ctx context.Context) {
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		s.connMu.RLock()
		conn := s.conn
		s.connMu.RUnlock()

		if conn == nil {
			time.Sleep(1 * time.Second)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.logger.WithError(err).Error("Failed to read stream message")
			s.handleDisconnect(ctx)
			continue
		}

		if err := s.handleMessage(ctx, message); err != nil {
			s.logger.WithError(err).Error("Failed to handle stream event")
		}
	}
}

func (s *Stream) keepaliveLoop(ctx context.Context) {
	ticker := time.NewTicker(listenKeyKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.renewListenKey(ctx); err != nil {
				s.logger.WithError(err).Warn("Listen key keepalive failed")
			}
		}
	}
}

// handleDisconnect reconnects with exponential backoff
func (s *Stream) handleDisconnect(ctx context.Context) {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-time.After(delay):
		}

		if err := s.connect(ctx); err != nil {
			s.logger.WithError(err).Warn("Reconnect failed")
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
			continue
		}

		return
	}
}

// orderTradeUpdate is the ORDER_TRADE_UPDATE stream event
type orderTradeUpdate struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Order     struct {
		Symbol        string `json:"s"`
		Side          string `json:"S"`
		ExecutionType string `json:"x"` // TRADE when a fill happened
		TradeID       int64  `json:"t"`
		TradeTime     int64  `json:"T"`
		LastFilledQty string `json:"l"`
		LastPrice     string `json:"L"`
		RealizedPnL   string `json:"rp"`
		Commission    string `json:"n"`
	} `json:"o"`
}

// handleMessage converts fill events to records; everything else is ignored
func (s *Stream) handleMessage(ctx context.Context, message []byte) error {
	var envelope struct {
		EventType string `json:"e"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		return fmt.Errorf("parse event: %w", err)
	}

	if envelope.EventType != "ORDER_TRADE_UPDATE" {
		return nil
	}

	var event orderTradeUpdate
	if err := json.Unmarshal(message, &event); err != nil {
		return fmt.Errorf("parse order update: %w", err)
	}
	if event.Order.ExecutionType != "TRADE" {
		return nil
	}

	rec, err := fillToRecord(event)
	if err != nil {
		return err
	}

	inserted, err := s.store.UpsertRecords(ctx, []store.Record{rec})
	if err != nil {
		return fmt.Errorf("store fill: %w", err)
	}

	if inserted > 0 {
		s.logger.WithFields(map[string]interface{}{
			"symbol": rec.Symbol,
			"pnl":    rec.RealizedPnL,
		}).Debug("Streamed fill stored")
	}

	return nil
}

func fillToRecord(event orderTradeUpdate) (store.Record, error) {
	o := event.Order

	qty, err := strconv.ParseFloat(o.LastFilledQty, 64)
	if err != nil {
		return store.Record{}, fmt.Errorf("parse quantity %q: %w", o.LastFilledQty, err)
	}
	price, err := strconv.ParseFloat(o.LastPrice, 64)
	if err != nil {
		return store.Record{}, fmt.Errorf("parse price %q: %w", o.LastPrice, err)
	}
	pnl, err := strconv.ParseFloat(o.RealizedPnL, 64)
	if err != nil {
		return store.Record{}, fmt.Errorf("parse pnl %q: %w", o.RealizedPnL, err)
	}
	fee := 0.0
	if o.Commission != "" {
		if fee, err = strconv.ParseFloat(o.Commission, 64); err != nil {
			return store.Record{}, fmt.Errorf("parse commission %q: %w", o.Commission, err)
		}
	}

	side := engine.SideBuy
	if o.Side == "SELL" {
		side = engine.SideSell
	}

	return store.Record{
		ID: fmt.Sprintf("trade-%s-%d", o.Symbol, o.TradeID),
		TradeRecord: engine.TradeRecord{
			Timestamp:   time.UnixMilli(o.TradeTime).UTC(),
			Symbol:      o.Symbol,
			Side:        side,
			Quantity:    qty,
			Price:       price,
			RealizedPnL: pnl,
			Fee:         fee,
			Kind:        engine.KindTrade,
		},
	}, nil
}
