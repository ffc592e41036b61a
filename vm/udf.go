package vm

import (
	"github.com/gotengo/teng/config"
	"github.com/gotengo/teng/ctype"
	"github.com/gotengo/teng/dict"
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/value"
)

// CallContext is the optional runtime context a UDF may read, per
// spec.md §6's "optionally also receiving a context with
// escaper/pos/encoding/params/dict/error log".
type CallContext struct {
	Escaper *ctype.ContentType
	Pos     errlog.Position
	Params  *config.Parameters
	Dict    *dict.Dictionary
	Log     *errlog.Log
}

// UDFResolver is the process-wide UDF registry collaborator (spec.md
// §6 "UDF registry"), injected into a Processor so this package never
// depends on the concrete registry implementation (the `udf` package).
type UDFResolver interface {
	Call(name string, args []value.Value, ctx CallContext) (value.Value, error)
}
