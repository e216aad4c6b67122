package observe

import (
	"context"

	"github.com/alt-coder/pocketflow-go/v2/core"
)

type multi []core.Observer

func (m multi) OnEvent(ctx context.Context, ev core.Event) {
	for _, o := range m {
		o.OnEvent(ctx, ev)
	}
}

// Multi fans every event out to observers in order. Nil entries are skipped.
func Multi(observers ...core.Observer) core.Observer {
	var out multi
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return core.NopObserver
	case 1:
		return out[0]
	}
	return out
}
