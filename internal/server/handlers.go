package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lunamoth/driftwood/internal/resp"
	"github.com/lunamoth/driftwood/internal/store"
)

// expireDuration converts a client-supplied expire count to a Duration.
// The nanosecond product of a large count wraps int64, so anything outside
// the representable range is rejected instead of converted.
func expireDuration(n int64, unit time.Duration) (time.Duration, bool) {
	if n > math.MaxInt64/int64(unit) || n < math.MinInt64/int64(unit) {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

func ping(ctx *context) resp.Value {
	switch len(ctx.args) {
	case 0:
		return resp.MakeSimpleString("PONG")
	case 1:
		return resp.MakeBulkBytes(ctx.argBytes(0))
	}
	return resp.MakeErrorWrongNumberOfArguments("PING")
}

func get(ctx *context) resp.Value {
	v, ok, err := ctx.store.Get(ctx.arg(0))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkBytes(v)
}

func set(ctx *context) resp.Value {
	key := ctx.arg(0)
	value := ctx.argBytes(1)

	var opts store.SetOptions
	ttlSet := false

	for i := 2; i < len(ctx.args); i++ {
		switch strings.ToUpper(ctx.arg(i)) {
		case "NX":
			if opts.XX {
				return resp.MakeError("ERR NX cannot use with XX")
			}
			opts.NX = true

		case "XX":
			if opts.NX {
				return resp.MakeError("ERR XX cannot use with NX")
			}
			opts.XX = true

		case "KEEPTTL":
			if ttlSet {
				return resp.MakeError("ERR TTL already specified")
			}
			opts.KeepTTL = true
			ttlSet = true

		case "EX", "PX", "EXAT":
			if ttlSet {
				return resp.MakeError("ERR TTL already specified")
			}
			if i+1 >= len(ctx.args) {
				return resp.MakeError("ERR syntax error")
			}
			n, err := strconv.ParseInt(ctx.arg(i+1), 10, 64)
			if err != nil {
				return resp.MakeError("ERR value TTL is not integer")
			}

			switch strings.ToUpper(ctx.arg(i)) {
			case "EX":
				d, ok := expireDuration(n, time.Second)
				if !ok || d <= 0 {
					return resp.MakeError("ERR invalid expire time in 'set' command")
				}
				opts.TTL = d
			case "PX":
				d, ok := expireDuration(n, time.Millisecond)
				if !ok || d <= 0 {
					return resp.MakeError("ERR invalid expire time in 'set' command")
				}
				opts.TTL = d
			case "EXAT":
				// Sub saturates at the Duration limits, no wrap possible
				// here. An absolute timestamp in the past still writes the
				// key, it just expires on the next touch.
				opts.TTL = time.Until(time.Unix(n, 0))
				if opts.TTL <= 0 {
					opts.TTL = time.Nanosecond
				}
			}
			ttlSet = true
			i++

		default:
			return resp.MakeError("ERR syntax error with command SET")
		}
	}

	if !ctx.store.Set(key, value, opts) {
		// an unmet NX/XX condition is a nil reply, not an error
		return resp.MakeNilBulkString()
	}
	return resp.MakeSimpleString("OK")
}

func del(ctx *context) resp.Value {
	keys := make([]string, len(ctx.args))
	for i := range ctx.args {
		keys[i] = ctx.arg(i)
	}
	return resp.MakeInteger(ctx.store.Del(keys...))
}

func exists(ctx *context) resp.Value {
	keys := make([]string, len(ctx.args))
	for i := range ctx.args {
		keys[i] = ctx.arg(i)
	}
	return resp.MakeInteger(ctx.store.Exists(keys...))
}

func expire(ctx *context) resp.Value {
	seconds, err := strconv.ParseInt(ctx.arg(1), 10, 64)
	if err != nil {
		return resp.MakeError("ERR value is not an integer or out of range")
	}
	d, ok := expireDuration(seconds, time.Second)
	if !ok {
		return resp.MakeError("ERR invalid expire time in 'expire' command")
	}
	if ctx.store.Expire(ctx.arg(0), d) {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}

func ttl(ctx *context) resp.Value {
	d, status := ctx.store.TTL(ctx.arg(0))
	if status != store.ExpActive {
		return resp.MakeInteger(int64(status))
	}
	return resp.MakeInteger(int64((d + time.Second - 1) / time.Second))
}

func pttl(ctx *context) resp.Value {
	d, status := ctx.store.TTL(ctx.arg(0))
	if status != store.ExpActive {
		return resp.MakeInteger(int64(status))
	}
	return resp.MakeInteger(int64((d + time.Millisecond - 1) / time.Millisecond))
}

func persist(ctx *context) resp.Value {
	if ctx.store.Persist(ctx.arg(0)) {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}

func push(ctx *context, fn func(string, ...[]byte) (int64, error)) resp.Value {
	values := make([][]byte, len(ctx.args)-1)
	for i := 1; i < len(ctx.args); i++ {
		values[i-1] = ctx.argBytes(i)
	}
	n, err := fn(ctx.arg(0), values...)
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(n)
}

func lpush(ctx *context) resp.Value {
	return push(ctx, ctx.store.LPush)
}

func rpush(ctx *context) resp.Value {
	return push(ctx, ctx.store.RPush)
}

func pop(ctx *context, fn func(string) ([]byte, bool, error)) resp.Value {
	v, ok, err := fn(ctx.arg(0))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkBytes(v)
}

func lpop(ctx *context) resp.Value {
	return pop(ctx, ctx.store.LPop)
}

func rpop(ctx *context) resp.Value {
	return pop(ctx, ctx.store.RPop)
}

func llen(ctx *context) resp.Value {
	n, err := ctx.store.LLen(ctx.arg(0))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(n)
}

func lrange(ctx *context) resp.Value {
	start, err1 := strconv.ParseInt(ctx.arg(1), 10, 64)
	stop, err2 := strconv.ParseInt(ctx.arg(2), 10, 64)
	if err1 != nil || err2 != nil {
		return resp.MakeError("ERR value is not an integer or out of range")
	}

	elems, err := ctx.store.LRange(ctx.arg(0), start, stop)
	if err != nil {
		return resp.MakeError(err.Error())
	}

	out := make([]resp.Value, len(elems))
	for i, el := range elems {
		out[i] = resp.MakeBulkBytes(el)
	}
	return resp.MakeArray(out)
}

func hset(ctx *context) resp.Value {
	if (len(ctx.args)-1)%2 != 0 {
		return resp.MakeErrorWrongNumberOfArguments("HSET")
	}

	pairs := make([][]byte, len(ctx.args)-1)
	for i := 1; i < len(ctx.args); i++ {
		pairs[i-1] = ctx.argBytes(i)
	}
	n, err := ctx.store.HSet(ctx.arg(0), pairs...)
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(n)
}

func hget(ctx *context) resp.Value {
	v, ok, err := ctx.store.HGet(ctx.arg(0), ctx.arg(1))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkBytes(v)
}

func hdel(ctx *context) resp.Value {
	fields := make([]string, len(ctx.args)-1)
	for i := 1; i < len(ctx.args); i++ {
		fields[i-1] = ctx.arg(i)
	}
	n, err := ctx.store.HDel(ctx.arg(0), fields...)
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(n)
}

func hgetall(ctx *context) resp.Value {
	all, err := ctx.store.HGetAll(ctx.arg(0))
	if err != nil {
		return resp.MakeError(err.Error())
	}

	out := make([]resp.Value, 0, len(all)*2)
	for field, val := range all {
		out = append(out, resp.MakeBulkString(field), resp.MakeBulkBytes(val))
	}
	return resp.MakeArray(out)
}

func hexists(ctx *context) resp.Value {
	ok, err := ctx.store.HExists(ctx.arg(0), ctx.arg(1))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	if ok {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}

func keys(ctx *context) resp.Value {
	matched := ctx.store.Keys(ctx.arg(0))
	out := make([]resp.Value, len(matched))
	for i, k := range matched {
		out[i] = resp.MakeBulkString(k)
	}
	return resp.MakeArray(out)
}

func flushall(ctx *context) resp.Value {
	ctx.store.FlushAll()
	return resp.MakeSimpleString("OK")
}

func cmd(ctx *context) resp.Value {
	if len(ctx.args) == 0 {
		return getAllCommands()
	}

	switch strings.ToUpper(ctx.arg(0)) {
	case "DOCS":
		return getCommandsDocs(ctx.args[1:])
	case "COUNT":
		return resp.MakeInteger(int64(len(commandRegistry)))
	}
	return resp.MakeError("ERR unknown COMMAND subcommand '" + ctx.arg(0) + "'")
}
