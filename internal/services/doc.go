// Package services implements the client side of the Coze workflow API, the
// upstream AI service that extracts caption text from short-video links and
// rewrites it on request.
//
// # Stream Format
//
// The workflow endpoint answers with pseudo-SSE text: events separated by a
// blank line, each carrying one or more "data: <json>" lines. The decoded
// envelope ([WorkflowEvent]) holds node metadata plus a content field that is
// itself a JSON string, decoded a second time to reach the payload. The
// rewrite result lives in the single event titled "End".
//
// [ParseRewriteStream] and [ParseExtractStream] are pure functions over the
// raw response text; neither performs I/O.
//
// # Transports
//
// [CozeService] reaches the upstream two ways: a direct call with a bearer
// token, and a relay through the same-origin proxy endpoint (which wraps the
// raw stream text in a {data} envelope). [CozeService.Rewrite] tries direct
// first and falls back to the proxy only on transport-level failures —
// a response that arrived but failed to parse is handled above this layer
// and never flips the transport.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrAPIRequest] : transport failure, retried with backoff
//   - [shared.ErrBadResponse] : response arrived but could not be decoded, never retried
//   - [shared.ErrTimeout] : the overall deadline elapsed, supersedes remaining retries
//
// [StatusError] carries the upstream HTTP status for diagnostics and unwraps
// to [shared.ErrAPIRequest] so errors.Is drives retry classification.
package services
