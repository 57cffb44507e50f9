// Package phaeton is a streaming data-sanitization engine.
//
// Phaeton reads delimited tabular data that is too large to hold in memory,
// runs every row through a declared chain of cleaning, transform and filter
// stages, and writes two outputs: the clean rows and an audited quarantine
// stream of rejected rows, each tagged with the reason it was rejected. No
// row is ever dropped silently.
//
// # Building pipelines
//
// Pipelines are immutable handles. Every builder call returns a new handle
// and leaves its receiver untouched, so a shared prefix can be forked into
// independent branches:
//
//	eng, err := phaeton.New(config.NewEngineConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	base, err := eng.IngestFile("customers.csv", source.Dialect{Encoding: "windows-1252"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	base = base.Headers(operator.StyleSnake).Scrub("email", operator.ScrubTrim)
//
//	billing := base.Fork("billing").
//		Cast("balance", operator.DTypeFloat, operator.CastOptions{Clean: true}).
//		QuarantineTo("billing_rejects.csv").
//		DumpTo("billing.parquet")
//
//	contacts := base.Fork("contacts").
//		Dedupe("email").
//		Hash("phone", "s3cret").
//		DumpTo("s3://crm-exports/contacts.jsonl.gz")
//
//	stats, err := eng.Exec(ctx, billing, contacts)
//
// # Execution
//
// Exec validates every pipeline before reading a single row. Pipelines then
// run concurrently on a shared worker pool; each reads its source in chunks,
// preserves source order in both outputs and keeps its dedupe and fill state
// to itself. A pipeline that fails reports the error in its own Stats and
// never stops its siblings.
//
// Every handle can be executed once. Adding stages to an executed handle
// yields a StateError.
//
// # Strict mode
//
// With EngineConfig.Strict set, Ingest reads the source header at once and
// Exec checks every column reference against it, following renames and
// header restyling through the stage list. All problems are reported
// together as one SchemaError.
//
// # Sinks
//
// Dump and Quarantine accept any sink.Writer. DumpTo and QuarantineTo
// resolve a URI: local files and s3:// or gs:// objects in csv, tsv, jsonl,
// avro or parquet, optionally compressed, or record stores such as
// bigquery://, kafka://, mongodb://, postgres://, sqlite://, mysql:// and
// snowflake://. Record stores are registered by importing their package for
// its side effects, for example
//
//	import _ "github.com/ajitpratap0/phaeton/pkg/sink/postgres"
package phaeton
