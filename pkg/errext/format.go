package errext

// Format splits err into the diagnostic line and the extra fields that go
// with it: "hint" when one is attached. A nil err gives an empty message and
// no fields.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}
	fields := make(map[string]interface{})
	if hint := HintOf(err); hint != "" {
		fields["hint"] = hint
	}
	return err.Error(), fields
}
