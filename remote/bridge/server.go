package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/btcsuite/btcsigner/remote"
	"github.com/btcsuite/btcsigner/signer"
	"github.com/btcsuite/websocket"
	"github.com/davecgh/go-spew/spew"
)

// Server exposes a signer.Signer as a bridge endpoint. Requests on one
// connection are answered in order, one at a time.
type Server struct {
	signer signer.Signer
}

// NewServer returns a bridge server backed by s.
func NewServer(s signer.Signer) *Server {
	return &Server{signer: s}
}

// ServeHTTP upgrades the request to a websocket and serves bridge calls
// until the peer disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Upgrade(w, r, nil, 0, 0)
	if err != nil {
		log.Errorf("Unable to upgrade bridge connection from %s: %v",
			r.RemoteAddr, err)

		return
	}
	defer conn.Close()

	log.Infof("Bridge client connected from %s", r.RemoteAddr)

	ctx := r.Context()
	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			log.Debugf("Bridge client %s gone: %v", r.RemoteAddr,
				err)

			return
		}

		log.Tracef("Bridge request: %v", newLogClosure(func() string {
			return spew.Sdump(req)
		}))

		resp := s.handle(ctx, &req)
		if err := conn.WriteJSON(resp); err != nil {
			log.Errorf("Unable to answer bridge request %d: %v",
				req.ID, err)

			return
		}
	}
}

// handle dispatches one request.
func (s *Server) handle(ctx context.Context, req *request) *response {
	result, rpcErr := s.dispatch(ctx, req)
	if rpcErr != nil {
		log.Debugf("Bridge request %d (%s) failed: %v", req.ID,
			req.Method, rpcErr)

		return &response{ID: req.ID, Error: rpcErr}
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return &response{ID: req.ID, Error: &RPCError{
			Code:    CodeSigningFailed,
			Message: err.Error(),
		}}
	}

	return &response{ID: req.ID, Result: raw}
}

func (s *Server) dispatch(ctx context.Context, req *request) (any,
	*RPCError) {

	switch req.Method {
	case MethodGetAccounts:
		addr, err := s.signer.Address().Unpack()
		if err != nil {
			return nil, signingErr(err)
		}

		return []string{addr}, nil

	case MethodGetNetwork:
		net, err := s.signer.NetworkType().Unpack()
		if err != nil {
			return nil, signingErr(err)
		}

		name, err := remote.ProviderNetworkName(net)
		if err != nil {
			return nil, signingErr(err)
		}

		return name, nil

	case MethodSignMessage:
		var (
			message string
			scheme  signer.MessageSignType
		)
		if err := decodeParams(req, 1, &message, &scheme); err != nil {
			return nil, err
		}

		sig, err := s.signer.SignMessage(ctx, message, scheme)
		if err != nil {
			return nil, signingErr(err)
		}

		return sig, nil

	case MethodSignPsbt:
		var (
			psbtHex string
			opts    *signer.PsbtSignOptions
		)
		if err := decodeParams(req, 1, &psbtHex, &opts); err != nil {
			return nil, err
		}

		signed, err := s.signer.SignPsbt(
			ctx, signer.PsbtHex(psbtHex), opts,
		)
		if err != nil {
			return nil, signingErr(err)
		}

		signedHex, err := signed.Hex()
		if err != nil {
			return nil, signingErr(err)
		}

		return signedHex, nil

	case MethodSignPsbts:
		var (
			psbtHexes []string
			opts      *signer.PsbtSignOptions
		)
		if err := decodeParams(req, 1, &psbtHexes, &opts); err != nil {
			return nil, err
		}

		psbts := make([]signer.Psbt, 0, len(psbtHexes))
		for _, psbtHex := range psbtHexes {
			psbts = append(psbts, signer.PsbtHex(psbtHex))
		}

		signed, err := s.signer.SignPsbts(ctx, psbts, opts)
		if err != nil {
			return nil, signingErr(err)
		}

		signedHexes := make([]string, 0, len(signed))
		for _, p := range signed {
			signedHex, err := p.Hex()
			if err != nil {
				return nil, signingErr(err)
			}

			signedHexes = append(signedHexes, signedHex)
		}

		return signedHexes, nil

	default:
		return nil, &RPCError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("unknown method %q", req.Method),
		}
	}
}

// decodeParams decodes the positional parameters into targets. The first
// required targets must be present; the rest are optional.
func decodeParams(req *request, required int, targets ...any) *RPCError {
	if len(req.Params) < required || len(req.Params) > len(targets) {
		return &RPCError{
			Code: CodeInvalidParams,
			Message: fmt.Sprintf("%s takes %d to %d params, got %d",
				req.Method, required, len(targets),
				len(req.Params)),
		}
	}

	for i, raw := range req.Params {
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return &RPCError{
				Code: CodeInvalidParams,
				Message: fmt.Sprintf("param %d of %s: %v", i,
					req.Method, err),
			}
		}
	}

	return nil
}

// signingErr converts a signer failure into an RPC error.
func signingErr(err error) *RPCError {
	return &RPCError{Code: CodeSigningFailed, Message: err.Error()}
}
