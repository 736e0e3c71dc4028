// Package protocol defines the vector message model and its VCMP wire
// format: a structured, integrity-checked unit whose primary content is a
// fixed-dimension embedding vector rather than text.
//
// A Message is Header (dimension, numeric encoding, semantic space,
// confidence) + Payload (primary vector, optional context vectors with
// attention weights, optional uncertainty vector) + Metadata (routing ids,
// intent, priority, timestamp) + optional checksum/signature trailers.
//
// Serialize/Deserialize implement the fixed little-endian frame layout;
// AddChecksum/Sign attach SHA-256 / HMAC-SHA256 trailers computed over the
// canonical (uncompressed, trailer-free) encoding, so a checksummed message
// is immutable and a re-checksum never hashes a prior checksum.
package protocol
