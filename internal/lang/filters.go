package lang

import "strings"

// applyFilter is a pure string->string transform, applied left-to-right by
// the Evaluator when rendering a VariableRef.
func (ev *Evaluator) applyFilter(f FilterCall, in []byte) ([]byte, error) {
	switch f.Name {
	case "flatten":
		return []byte(strings.ReplaceAll(string(in), "\n", " ")), nil
	case "detab":
		return []byte(strings.ReplaceAll(string(in), "\t", "")), nil
	case "trim":
		return []byte(strings.Trim(string(in), " \t\r\n\f\v")), nil
	case "upper":
		return []byte(strings.ToUpper(string(in))), nil
	case "lower":
		return []byte(strings.ToLower(string(in))), nil
	case "replace":
		if len(f.Args) != 2 {
			return in, nil
		}
		return []byte(strings.Replace(string(in), f.Args[0], f.Args[1], 1)), nil
	case "md":
		return ev.md.Markdown(in)
	default:
		return nil, newErr(KindParse, "", 0, "unknown filter %q", f.Name)
	}
}
