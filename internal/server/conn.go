package server

import (
	"errors"
	"io"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/lunamoth/driftwood/internal/resp"
	"go.uber.org/zap"
)

// HandleConnection runs the read-dispatch-reply loop for a single client.
// Replies are flushed only when no further pipelined input is buffered. A
// malformed frame gets an error reply and closes this connection only; a
// command-level error is just a reply and the loop continues.
func HandleConnection(conn net.Conn, engine *Engine, log *zap.Logger) {
	log = log.With(zap.String("conn_id", uuid.NewString()))
	if log.Core().Enabled(zap.DebugLevel) {
		log.Debug("client connected", zap.String("addr", conn.RemoteAddr().String()))
	}

	peer := NewPeer(conn)
	defer func() {
		peer.Close() //nolint:errcheck
		if log.Core().Enabled(zap.DebugLevel) {
			log.Debug("client disconnected", zap.String("addr", conn.RemoteAddr().String()))
		}
	}()

	for {
		cmdValue, err := peer.ReadCommand()
		if err != nil {
			if errors.Is(err, resp.ErrProtocol) {
				log.Warn("malformed request, closing connection", zap.Error(err))
				peer.Send(resp.MakeError("ERR " + err.Error())) //nolint:errcheck
				peer.Flush()                                    //nolint:errcheck
				return
			}
			if err != io.EOF {
				log.Warn("read command failed", zap.Error(err))
			}
			return
		}

		if cmdValue.Type != resp.TypeArray || len(cmdValue.Array) == 0 {
			continue
		}

		commandName := strings.ToUpper(string(cmdValue.Array[0].String))
		args := cmdValue.Array[1:]

		result := engine.Execute(commandName, args)

		if err = peer.Send(result); err != nil {
			log.Error("error writing response", zap.Error(err))
			return
		}

		if peer.InputBuffered() == 0 {
			if err := peer.Flush(); err != nil {
				return
			}
		}
	}
}
