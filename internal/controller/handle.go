package controller

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/coreman2200/funtimes-ledstrip/internal/command"
	diag "github.com/coreman2200/funtimes-ledstrip/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledstrip/internal/pattern"
)

var errShuttingDown = errors.New("shutting down")

type handler func(c *Controller, r command.Request) command.Response

var handlers = map[command.Kind]handler{
	command.KindSelectPattern:        selectPattern,
	command.KindSetColor:             setColor,
	command.KindSetBrightness:        setBrightness,
	command.KindSetProgressIncrement: setIncrement,
	command.KindGetBrightness: func(c *Controller, _ command.Request) command.Response {
		return command.OK(int(c.drv.Brightness()))
	},
	command.KindGetIncrement: func(c *Controller, _ command.Request) command.Response {
		return command.OK(c.increment)
	},
	command.KindListPatterns: func(c *Controller, _ command.Request) command.Response {
		return command.OK(c.reg.List())
	},
	command.KindGetStatus: func(c *Controller, _ command.Request) command.Response {
		return command.OK(c.Status())
	},
}

// requestKind is r's kind, or "" when r is nil or a nil pointer.
func requestKind(r command.Request) command.Kind {
	if r == nil {
		return ""
	}
	if v := reflect.ValueOf(r); v.Kind() == reflect.Pointer && v.IsNil() {
		return ""
	}
	return r.Kind()
}

func badRequest(r command.Request) command.Response {
	return command.Fail(&command.ConfigError{Field: "command", Reason: fmt.Sprintf("unsupported request type %T", r)})
}

// handle validates r and applies it. Rejected requests change nothing.
func (c *Controller) handle(r command.Request) command.Response {
	kind := requestKind(r)
	if kind == "" {
		return command.Fail(&command.ConfigError{Field: "command", Reason: "missing"})
	}
	h, ok := handlers[kind]
	if !ok {
		return command.Fail(&command.ConfigError{Field: "command", Reason: fmt.Sprintf("unsupported %q", kind)})
	}
	if err := r.Validate(); err != nil {
		c.log.Debug().Err(err).Str("command", string(kind)).Msg("rejected")
		return command.Fail(err)
	}
	return h(c, r)
}

func selectPattern(c *Controller, r command.Request) command.Response {
	req, ok := r.(command.SelectPattern)
	if !ok {
		return badRequest(r)
	}
	name := req.Name
	root, err := c.reg.Build(name)
	if err != nil {
		c.log.Warn().Err(err).Msg("select pattern")
		return command.Fail(err)
	}
	c.install(root, name)
	c.log.Info().Str("pattern", name).Msg("pattern selected")
	c.emit(diag.Diagnostic{Severity: diag.Info, Code: "PATTERN.SELECTED", Summary: "Pattern selected", Detail: name})
	return command.OK(name)
}

func setColor(c *Controller, r command.Request) command.Response {
	req, ok := r.(command.SetColor)
	if !ok {
		return badRequest(r)
	}
	col := req.Color
	c.install(pattern.Solid(col), "color:"+col.String())
	c.log.Info().Stringer("color", col).Msg("solid color")
	return command.OK(col.String())
}

func setBrightness(c *Controller, r command.Request) command.Response {
	req, ok := r.(command.SetBrightness)
	if !ok {
		return badRequest(r)
	}
	v := req.Value
	c.setBrightness(uint8(v))
	c.log.Debug().Int("brightness", v).Msg("brightness set")
	return command.OK(v)
}

func setIncrement(c *Controller, r command.Request) command.Response {
	req, ok := r.(command.SetProgressIncrement)
	if !ok {
		return badRequest(r)
	}
	v := req.Value
	c.setIncrement(v)
	c.log.Debug().Float64("increment", v).Msg("increment set")
	return command.OK(v)
}
