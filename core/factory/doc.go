// Package factory builds pluggable backends from configuration. A backend
// is selected by ModuleConfig.Type and receives ModuleConfig.Conf, which the
// factory decodes into its own settings struct:
//
//	stores := factory.NewRegistry[LogStore]()
//	_ = stores.Register("jsonl", func(conf map[string]any) (LogStore, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewJSONLStore(c.Path)
//	})
//	st, err := stores.Create(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "decisions.log"}})
//
// Decision log stores and metrics sinks are registered this way.
package factory
