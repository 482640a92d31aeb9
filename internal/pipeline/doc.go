// Package pipeline provides a framework for executing validation steps
// in sequence.
//
// The pipeline pattern is used to process a key file through multiple
// stages: checking every key against the endpoint, writing the
// active-keys file, and writing the debug log. Each stage is implemented
// as a Step that receives the current report and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running runs
package pipeline
