package templates

import (
	"strconv"
	"strings"

	"github.com/2oops/vue-collections/observer"
)

func watcherShape(w *observer.Watcher) string {
	switch {
	case w.IsRender():
		return "box"
	case w.IsLazy():
		return "diamond"
	case w.IsUser():
		return "ellipse"
	}
	return "oval"
}

func watcherLabel(w *observer.Watcher) string {
	var sb strings.Builder
	sb.WriteString("#")
	sb.WriteString(strconv.FormatUint(w.ID(), 10))
	sb.WriteString(" ")
	sb.WriteString(w.Expression())
	if w.Dirty() {
		sb.WriteString(" (dirty)")
	}
	return sb.String()
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
