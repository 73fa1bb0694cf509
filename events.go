package hostedgit

// EventType identifies a provider notification.
type EventType int

const (
	// EventRepositoriesChanged is emitted when repositories may have become
	// resolvable, for example after the repository bridge registered.
	EventRepositoriesChanged EventType = iota

	// EventCacheReset is emitted after a scoped or global cache reset.
	EventCacheReset

	// EventSessionChanged is emitted after cached sessions were dropped.
	EventSessionChanged
)

func (t EventType) String() string {
	switch t {
	case EventRepositoriesChanged:
		return "repositories-changed"
	case EventCacheReset:
		return "cache-reset"
	case EventSessionChanged:
		return "session-changed"
	default:
		return "unknown"
	}
}

// Event is delivered to Options.OnEvent. RepoPaths is empty for events that
// concern every repository.
type Event struct {
	Type       EventType
	RepoPaths  []string
	Categories []CacheCategory
}

func (p *Provider) emit(e Event) {
	p.logger.Debug("provider event", "type", e.Type.String(), "repos", e.RepoPaths)
	if p.opts.OnEvent != nil {
		p.opts.OnEvent(e)
	}
}
