package operator

import "github.com/ajitpratap0/phaeton/pkg/record"

// Fork is the no-op stage that lets two pipeline handles diverge.
type Fork struct{}

func (Fork) Kind() Kind { return KindFork }

func (Fork) Stateful() bool { return false }

func (Fork) Columns() []string { return nil }

func (Fork) Check() []string { return nil }

func (Fork) Derive(in record.Schema) (record.Schema, error) { return in, nil }

// Bind returns a nil stage; executors skip it.
func (Fork) Bind(env Env) (Stage, *record.Header, error) { return nil, env.Header, nil }
