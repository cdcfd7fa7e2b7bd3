package indexer

func WithUsername(username string) Option {
	return func(i *Indexer) {
		i.username = username
	}
}

func WithPassword(password string) Option {
	return func(i *Indexer) {
		i.password = password
	}
}

func WithSkipTLS() Option {
	return func(i *Indexer) {
		i.insecureSkipVerify = true
	}
}

// WithCACert trusts only the PEM encoded CA at path.
func WithCACert(path string) Option {
	return func(i *Indexer) {
		i.caCert = path
	}
}

func WithIndex(index string) Option {
	return func(i *Indexer) {
		if index != "" {
			i.index = index
		}
	}
}
