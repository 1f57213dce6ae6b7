// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcsigner/remote"
	"github.com/btcsuite/btcsigner/signer"
	"github.com/btcsuite/websocket"
	"github.com/lightningnetwork/lnd/ticker"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrClientClosed is returned for calls made after the connection to
	// the bridge was lost or closed.
	ErrClientClosed = errors.New("bridge client closed")

	// ErrUnexpectedResponse is returned when a response cannot be decoded
	// into the expected result.
	ErrUnexpectedResponse = errors.New("unexpected bridge response")
)

// Client is a remote.Provider reached over a websocket bridge. A provider
// can only handle one request at a time, so calls are serialized.
type Client struct {
	started sync.Once
	stopped sync.Once

	cfg  *Config
	conn *websocket.Conn

	// sem admits a single request in flight.
	sem *semaphore.Weighted

	// writeMtx serializes writes of requests and pings.
	writeMtx sync.Mutex

	nextID    atomic.Uint64
	connected atomic.Bool

	pendingMtx sync.Mutex
	pending    map[uint64]chan *response

	pingTicker ticker.Ticker

	quit chan struct{}
	wg   sync.WaitGroup
}

// A compile time check to ensure Client implements remote.Provider.
var _ remote.Provider = (*Client)(nil)

// Dial connects to the bridge at cfg.URL and starts the client.
func Dial(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialer := &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	conn, _, err := dialer.Dial(cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to dial bridge %s: %w", cfg.URL,
			err)
	}

	c := newClient(cfg, conn, ticker.New(cfg.PingInterval))
	c.Start()

	log.Infof("Connected to wallet bridge at %s", cfg.URL)

	return c, nil
}

// newClient wraps an established connection.
func newClient(cfg *Config, conn *websocket.Conn,
	pingTicker ticker.Ticker) *Client {

	return &Client{
		cfg:        cfg,
		conn:       conn,
		sem:        semaphore.NewWeighted(1),
		pending:    make(map[uint64]chan *response),
		pingTicker: pingTicker,
		quit:       make(chan struct{}),
	}
}

// Start launches the read and keepalive goroutines.
func (c *Client) Start() {
	c.started.Do(func() {
		c.connected.Store(true)
		c.pingTicker.Resume()

		c.wg.Add(2)
		go c.readHandler()
		go c.pingHandler()
	})
}

// Stop closes the connection and waits for the goroutines to exit.
func (c *Client) Stop() error {
	var err error
	c.stopped.Do(func() {
		wasConnected := c.connected.Swap(false)
		close(c.quit)
		c.pingTicker.Stop()

		if wasConnected {
			err = c.conn.Close()
		}
	})

	c.wg.Wait()

	return err
}

// Available reports whether the connection to the bridge is up. A nil
// client is never available.
func (c *Client) Available() bool {
	return c != nil && c.connected.Load()
}

// readHandler routes responses to their waiting call until the connection
// fails.
//
// NOTE: This MUST be run as a goroutine.
func (c *Client) readHandler() {
	defer c.wg.Done()
	defer c.disconnect()

	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			select {
			case <-c.quit:
			default:
				log.Errorf("Bridge read failed: %v", err)
			}

			return
		}

		c.pendingMtx.Lock()
		sink, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.pendingMtx.Unlock()

		if !ok {
			log.Warnf("Dropping bridge response with unknown id %d",
				resp.ID)

			continue
		}

		sink <- &resp
	}
}

// pingHandler sends a ping on every tick.
//
// NOTE: This MUST be run as a goroutine.
func (c *Client) pingHandler() {
	defer c.wg.Done()

	for {
		select {
		case <-c.pingTicker.Ticks():
			c.writeMtx.Lock()
			err := c.conn.WriteControl(
				websocket.PingMessage, nil,
				time.Now().Add(c.cfg.WriteTimeout),
			)
			c.writeMtx.Unlock()

			if err != nil {
				log.Errorf("Bridge ping failed: %v", err)
				c.disconnect()

				return
			}

			log.Tracef("Sent bridge ping")

		case <-c.quit:
			return
		}
	}
}

// disconnect marks the client unavailable and fails every waiting call.
func (c *Client) disconnect() {
	if !c.connected.Swap(false) {
		return
	}

	log.Infof("Disconnected from wallet bridge")

	c.pendingMtx.Lock()
	for id, sink := range c.pending {
		close(sink)
		delete(c.pending, id)
	}
	c.pendingMtx.Unlock()

	_ = c.conn.Close()
}

// call sends method with params and decodes the result into result.
func (c *Client) call(ctx context.Context, method string, result any,
	params ...any) error {

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	if !c.Available() {
		return ErrClientClosed
	}

	rawParams, err := marshalParams(params...)
	if err != nil {
		return err
	}

	req := &request{
		ID:     c.nextID.Add(1),
		Method: method,
		Params: rawParams,
	}

	sink := make(chan *response, 1)
	c.pendingMtx.Lock()
	c.pending[req.ID] = sink
	c.pendingMtx.Unlock()

	defer func() {
		c.pendingMtx.Lock()
		delete(c.pending, req.ID)
		c.pendingMtx.Unlock()
	}()

	c.writeMtx.Lock()
	err = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err == nil {
		err = c.conn.WriteJSON(req)
	}
	c.writeMtx.Unlock()
	if err != nil {
		return fmt.Errorf("unable to send %s: %w", method, err)
	}

	log.Debugf("Sent bridge request %d (%s)", req.ID, method)

	var resp *response
	select {
	case resp = <-sink:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.quit:
		return ErrClientClosed
	}

	// A closed sink means the connection dropped.
	if resp == nil {
		return ErrClientClosed
	}

	if resp.Error != nil {
		return resp.Error
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnexpectedResponse, method,
			err)
	}

	return nil
}

// GetAccounts implements remote.Provider.
func (c *Client) GetAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := c.call(ctx, MethodGetAccounts, &accounts)
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

// SignMessage implements remote.Provider.
func (c *Client) SignMessage(ctx context.Context, message string,
	scheme signer.MessageSignType) (string, error) {

	var sig string
	err := c.call(ctx, MethodSignMessage, &sig, message, scheme)
	if err != nil {
		return "", err
	}

	return sig, nil
}

// SignPsbt implements remote.Provider.
func (c *Client) SignPsbt(ctx context.Context, psbtHex string,
	opts *signer.PsbtSignOptions) (string, error) {

	var signed string
	err := c.call(ctx, MethodSignPsbt, &signed, psbtHex, opts)
	if err != nil {
		return "", err
	}

	return signed, nil
}

// SignPsbts implements remote.Provider.
func (c *Client) SignPsbts(ctx context.Context, psbtHexes []string,
	opts *signer.PsbtSignOptions) ([]string, error) {

	var signed []string
	err := c.call(ctx, MethodSignPsbts, &signed, psbtHexes, opts)
	if err != nil {
		return nil, err
	}

	return signed, nil
}

// GetNetwork implements remote.Provider.
func (c *Client) GetNetwork(ctx context.Context) (string, error) {
	var name string
	if err := c.call(ctx, MethodGetNetwork, &name); err != nil {
		return "", err
	}

	return name, nil
}
