// Package obm provides the policy decoding loop for online bipartite matching.
//
// # Reading Guide
//
// Start with these files to understand one forward pass:
//   - state.go: the batched Episode State (mask, update, running moments)
//   - features.go, features_gnn.go: per-candidate feature profiles
//   - selector.go: masking, log-softmax and greedy/sampled selection
//   - policy.go: the decoding loop and the Forward contract
//
// # Architecture
//
// The obm package wires the loop together; building blocks live in
// sub-packages:
//   - obm/graph/: batch-flattened bipartite graphs and subgraph projection
//   - obm/nn/: dense layers and the feed-forward stack
//   - obm/encoder/: graph encoders (mpnn, attention)
//   - obm/dataset/: instance generation, files and reference values
//   - obm/trace/: decision trace recording
//
// # Key Interfaces
//
//   - Problem: validates a batch and builds its State
//   - FeatureAssembler: State → candidate feature rows (ff-hist, gnn-hist, gnn-hist-pruned)
//   - encoder.Encoder: subgraph → node embeddings
package obm
