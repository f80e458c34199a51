// Package driven lists what the core needs from the outside world: parsers
// and the chunking pipeline, the embedding and chat models, the vector,
// metadata, asset and config stores.
//
// The vector and metadata stores share no transaction. They stay
// consistent because every write goes through the single ingestion worker.
//
// Packages here import only domain.
package driven
