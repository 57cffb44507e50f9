// # Loading
//
//	cfg, err := config.LoadEngine("phaeton.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A configuration file looks like:
//
//	batch_size: 5000
//	workers: 0
//	strict: true
//	logging:
//	  level: ${PHAETON_LOG_LEVEL:-info}
//	  encoding: json
//	metrics:
//	  enabled: true
//	  address: ":9090"
//
// # Environment Variable Substitution
//
// ${VAR_NAME} is replaced with the variable's value before the YAML is
// parsed. ${VAR_NAME:-default} supplies a fallback. Substitution happens on
// the raw text, so it works in any position.
//
// # Defaults
//
// Zero values fall back at the point of use: GetBatchSize returns 10000,
// GetWorkers returns the logical CPU count and GetMaxInflightChunks returns
// twice the worker count.
package config
