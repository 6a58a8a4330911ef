package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const componentKey = "component"

var (
	debugColor     = color.New(color.FgHiBlack)
	infoColor      = color.New(color.FgHiBlue)
	warnColor      = color.New(color.FgHiYellow)
	errorColor     = color.New(color.FgHiRed)
	componentColor = color.New(color.FgCyan)
	attrKeyColor   = color.New(color.FgHiBlack)
)

type ConsoleHandlerOptions struct {
	Level slog.Leveler
}

// ConsoleHandler prints one colored line per record:
// 15:04:05 [INFO] [COMPONENT] message key=value ...
type ConsoleHandler struct {
	w    io.Writer
	opts ConsoleHandlerOptions
	mu   *sync.Mutex

	component string
	attrs     []slog.Attr
	groups    []string
}

func NewConsoleHandler(w io.Writer, opts *ConsoleHandlerOptions) *ConsoleHandler {
	handler := &ConsoleHandler{
		w:  w,
		mu: &sync.Mutex{},
	}

	if opts != nil {
		handler.opts = *opts
	}

	if handler.opts.Level == nil {
		handler.opts.Level = slog.LevelInfo
	}

	return handler
}

func (that *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= that.opts.Level.Level()
}

func (that *ConsoleHandler) Handle(_ context.Context, record slog.Record) error {
	var line strings.Builder

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	line.WriteString(timestamp.Format(time.TimeOnly))

	levelStr, levelColor := levelStyle(record.Level)
	line.WriteString(" ")
	line.WriteString(levelColor.Sprintf("[%s]", levelStr))

	component := that.component
	attrs := make([]slog.Attr, 0, len(that.attrs)+record.NumAttrs())
	attrs = append(attrs, that.attrs...)

	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == componentKey && len(that.groups) == 0 {
			component = attr.Value.String()
			return true
		}

		attrs = append(attrs, that.qualify(attr))
		return true
	})

	if component != "" {
		line.WriteString(" ")
		line.WriteString(componentColor.Sprintf("[%s]", strings.ToUpper(component)))
	}

	line.WriteString(" ")
	line.WriteString(record.Message)

	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}

		fmt.Fprintf(&line, " %s%v", attrKeyColor.Sprint(attr.Key+"="), attr.Value.Resolve().Any())
	}

	line.WriteString("\n")

	that.mu.Lock()
	defer that.mu.Unlock()

	_, err := io.WriteString(that.w, line.String())

	return err
}

func (that *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return that
	}

	clone := that.clone()
	for _, attr := range attrs {
		if attr.Key == componentKey && len(that.groups) == 0 {
			clone.component = attr.Value.String()
			continue
		}

		clone.attrs = append(clone.attrs, that.qualify(attr))
	}

	return clone
}

func (that *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return that
	}

	clone := that.clone()
	clone.groups = append(clone.groups, name)

	return clone
}

func (that *ConsoleHandler) clone() *ConsoleHandler {
	return &ConsoleHandler{
		w:         that.w,
		opts:      that.opts,
		mu:        that.mu,
		component: that.component,
		attrs:     append([]slog.Attr(nil), that.attrs...),
		groups:    append([]string(nil), that.groups...),
	}
}

func (that *ConsoleHandler) qualify(attr slog.Attr) slog.Attr {
	if len(that.groups) == 0 {
		return attr
	}

	attr.Key = strings.Join(that.groups, ".") + "." + attr.Key

	return attr
}

func levelStyle(level slog.Level) (string, *color.Color) {
	switch {
	case level >= slog.LevelError:
		return "ERROR", errorColor
	case level >= slog.LevelWarn:
		return "WARN", warnColor
	case level >= slog.LevelInfo:
		return "INFO", infoColor
	default:
		return "DEBUG", debugColor
	}
}
