package server

import (
	"github.com/lunamoth/driftwood/internal/resp"
	"github.com/lunamoth/driftwood/internal/store"
)

// context carries one decoded command's arguments and the shared store
// handle into a handler. args excludes the command name itself.
type context struct {
	args  []resp.Value
	store *store.Store
}

func (c *context) arg(i int) string {
	return string(c.args[i].String)
}

func (c *context) argBytes(i int) []byte {
	return c.args[i].String
}

type command interface {
	execute(ctx *context) resp.Value
}

type commandFunc func(ctx *context) resp.Value

func (f commandFunc) execute(ctx *context) resp.Value {
	return f(ctx)
}
