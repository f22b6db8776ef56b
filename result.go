package callapi

import "github.com/mitchellh/mapstructure"

// CallResult is the structured outcome of a call: parsed data, the classified
// error, and the response that produced them. Exactly one of Data and Err is
// meaningful; Response accompanies both when one was received.
type CallResult struct {
	Data     any
	Err      *CallError
	Response *Response
}

// IsErr reports whether the call resolved to the error branch.
func (r *CallResult) IsErr() bool {
	return r.Err != nil
}

// DecodeData maps the parsed data into out using JSON field names. Data is
// typically a map[string]any decoded from a JSON body; this converts it into
// a caller-defined struct without a second round of serialization.
func (r *CallResult) DecodeData(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	return dec.Decode(r.Data)
}

// applyResultMode narrows a full result to the configured subset. Mode "all"
// returns the result unchanged, so deduplicated callers sharing an outcome
// observe identical references.
func applyResultMode(mode ResultMode, res *CallResult) *CallResult {
	switch mode {
	case ResultModeOnlySuccess:
		if res.Err != nil {
			return &CallResult{}
		}
		return &CallResult{Data: res.Data, Response: res.Response}
	case ResultModeOnlyData:
		if res.Err != nil {
			return &CallResult{}
		}
		return &CallResult{Data: res.Data}
	default:
		return res
	}
}
