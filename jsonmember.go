package fluent

import (
	"github.com/tidwall/gjson"
)

// JSONMember builds a descriptor that reads a gjson path out of a raw JSON
// document root. The root may be a []byte or string; anything else, and any
// path that does not exist in the document, yields a nil property value.
//
// This lets rules target fields of unparsed payloads:
//
//	rule := NewRule(JSONMember("user.email")).
//	    Add(NewComponent("not-empty", NotEmpty))
//
// The path's last segment doubles as the default display name, so failures
// read "user.email: ..." without further configuration.
func JSONMember(path string) MemberDescriptor {
	return MemberDescriptor{
		Name: path,
		Get: func(root any) any {
			var res gjson.Result
			switch doc := root.(type) {
			case []byte:
				res = gjson.GetBytes(doc, path)
			case string:
				res = gjson.Get(doc, path)
			default:
				return nil
			}

			if !res.Exists() {
				return nil
			}
			return res.Value()
		},
	}
}
