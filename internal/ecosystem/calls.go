package ecosystem

import "context"

// SubmitExtrinsic submits a pre-encoded, SCALE-encoded extrinsic (hex,
// 0x-prefixed) via `author_submitExtrinsic`. Encoding the extrinsic itself
// is out of scope here (spec.md §1 Non-goals: "ecosystem-specific
// RPC/extrinsic helpers used only by examples" are an external
// collaborator's job) — this client only ships bytes the caller already
// produced.
func (c *Client) SubmitExtrinsic(ctx context.Context, extrinsicHex string) (string, error) {
	var hash string
	if err := c.Call(ctx, "author_submitExtrinsic", []any{extrinsicHex}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// RegisterParachain submits the register_parachain extrinsic for a
// `using_extrinsic`/manual-strategy parachain (spec.md §6 `register_parachain(id)`).
// The caller supplies the already-encoded extrinsic; the id is only used
// to build a descriptive error.
func (c *Client) RegisterParachain(ctx context.Context, paraID int, extrinsicHex string) (string, error) {
	hash, err := c.SubmitExtrinsic(ctx, extrinsicHex)
	if err != nil {
		return "", &registerParachainError{ParaID: paraID, Cause: err}
	}
	return hash, nil
}

type registerParachainError struct {
	ParaID int
	Cause  error
}

func (e *registerParachainError) Error() string {
	return e.Cause.Error()
}

func (e *registerParachainError) Unwrap() error {
	return e.Cause
}

// AuthorizeUpgrade submits the authorize_upgrade extrinsic, the first half
// of a runtime_upgrade (spec.md §6 `runtime_upgrade(para_id, opts)`:
// "submits an authorize_upgrade+enact_authorized_upgrade pair").
func (c *Client) AuthorizeUpgrade(ctx context.Context, extrinsicHex string) (string, error) {
	return c.SubmitExtrinsic(ctx, extrinsicHex)
}

// EnactAuthorizedUpgrade submits the enact_authorized_upgrade extrinsic,
// which must follow a successful AuthorizeUpgrade.
func (c *Client) EnactAuthorizedUpgrade(ctx context.Context, extrinsicHex string) (string, error) {
	return c.SubmitExtrinsic(ctx, extrinsicHex)
}

// GetHeader reads the current best block header, used to observe the
// "subsequent block header reports new runtime version" assertion after a
// runtime upgrade.
func (c *Client) GetHeader(ctx context.Context) (BlockHeader, error) {
	var header BlockHeader
	err := c.Call(ctx, "chain_getHeader", []any{}, &header)
	return header, err
}

// BlockHeader is the subset of a chain_getHeader response this package
// cares about.
type BlockHeader struct {
	Number     string `json:"number"`
	ParentHash string `json:"parentHash"`
}

// RuntimeVersion is the result of state_getRuntimeVersion.
type RuntimeVersion struct {
	SpecName    string `json:"specName"`
	SpecVersion int    `json:"specVersion"`
}

// GetRuntimeVersion reads the node's current runtime version, used to
// confirm a runtime upgrade actually enacted.
func (c *Client) GetRuntimeVersion(ctx context.Context) (RuntimeVersion, error) {
	var v RuntimeVersion
	err := c.Call(ctx, "state_getRuntimeVersion", []any{}, &v)
	return v, err
}

// GetStorage reads a single storage item by its hex-encoded key.
func (c *Client) GetStorage(ctx context.Context, keyHex string) (string, error) {
	var value string
	err := c.Call(ctx, "state_getStorage", []any{keyHex}, &value)
	return value, err
}
