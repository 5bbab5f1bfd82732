package script

const opReturn = 0x6a

// ParseOpReturnScript decodes an OP_RETURN scriptPubKey hex string into its
// concatenated pushed data. Multiple pushes (rare, but legal pre-dust-relay
// policy tightening) are concatenated in order. Returns (nil, false) if the
// script does not start with OP_RETURN.
func ParseOpReturnScript(scriptHex string) ([]byte, bool) {
	b, ok := DecodeHex(scriptHex)
	if !ok || len(b) < 1 || b[0] != opReturn {
		return nil, false
	}
	pushes, ok := extractPushes(b[1:])
	if !ok {
		return nil, false
	}
	var out []byte
	for _, p := range pushes {
		out = append(out, p...)
	}
	return out, true
}
