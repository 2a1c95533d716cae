package docxtree

// Option configures a Document at open time.
type Option func(*options)

type options struct {
	config    *Config
	logger    *Logger
	ids       IDSource
	templates TemplateProvider
}

// WithIDSource sets the generator of paragraph identifiers.
func WithIDSource(ids IDSource) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// WithLogger sets the logger the document reports to.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConfig overrides the global configuration for one document.
func WithConfig(config *Config) Option {
	return func(o *options) {
		o.config = config
	}
}

// WithTemplates sets the provider of skeletons for new parts.
func WithTemplates(templates TemplateProvider) Option {
	return func(o *options) {
		o.templates = templates
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.config == nil {
		o.config = GetGlobalConfig()
	}
	if o.logger == nil {
		o.logger = GetLogger()
	}
	if o.ids == nil {
		o.ids = RandomIDSource{}
	}
	if o.templates == nil {
		o.templates = templatesFromConfig(o.config)
	}
	return o
}
