package gatehousehttp

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
)

// websocketGUID is the fixed GUID RFC 6455 §1.3 specifies for computing
// Sec-WebSocket-Accept from the client's Sec-WebSocket-Key.
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// tryWebSocket offers the upgrade to the first visited handler willing
// to accept it (DoesWebSocketRequests), completing the handshake
// synchronously and then handing the hijacked connection to the
// handler's WebSocketRequestHandler in a detached goroutine, mirroring
// ferron's hyper_tungstenite::upgrade + tokio::spawn pattern.
func (p *Pipeline) tryWebSocket(w http.ResponseWriter, rc *RequestContext) bool {
	key := rc.Request.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return false
	}

	var chosen Handler
	for _, factory := range p.Factories {
		h := factory()
		if h.DoesWebSocketRequests() {
			chosen = h
			rc.pushExecuted(h)
			break
		}
	}
	if chosen == nil {
		return false
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		p.finish(w, rc, nil, http.StatusInternalServerError, nil)
		return true
	}
	conn, buf, err := hijacker.Hijack()
	if err != nil {
		p.finish(w, rc, nil, http.StatusInternalServerError, nil)
		return true
	}
	_ = buf.Flush()

	accept := websocketAccept(key)
	header := http.Header{}
	if rc.Config != nil {
		for k, v := range rc.Config.CustomHeaders {
			header.Set(k, v)
		}
	}
	header.Set("Server", ServerSoftware)
	_, _ = conn.Write([]byte("HTTP/1.1 101 Switching Protocols\r\n"))
	_, _ = conn.Write([]byte("Upgrade: websocket\r\n"))
	_, _ = conn.Write([]byte("Connection: Upgrade\r\n"))
	_, _ = conn.Write([]byte("Sec-WebSocket-Accept: " + accept + "\r\n"))
	for k, vv := range header {
		for _, v := range vv {
			_, _ = conn.Write([]byte(k + ": " + v + "\r\n"))
		}
	}
	_, _ = conn.Write([]byte("\r\n"))

	p.logAccess(rc, &http.Response{StatusCode: http.StatusSwitchingProtocols, Header: header})

	go func() {
		defer conn.Close()
		if err := chosen.WebSocketRequestHandler(context.Background(), rc, conn); err != nil {
			p.logError(Error(http.StatusInternalServerError, err).Error())
		}
	}()
	return true
}

func websocketAccept(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
