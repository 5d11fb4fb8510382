package loader

import (
	"runtime"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/engine/macro"
	"go.trai.ch/zerr"
)

// evalContext exposes the unit to HCL expressions.
// defined and expand close over the unit scope, so they see everything defined by earlier blocks.
func (s *script) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"self":     cty.StringVal(s.unit.Identity),
			"platform": cty.StringVal(runtime.GOOS),
			"arch":     cty.StringVal(runtime.GOARCH),
		},
		Functions: map[string]function.Function{
			"defined":  s.definedFunc(),
			"expand":   s.expandFunc(),
			"concat":   stdlib.ConcatFunc,
			"contains": stdlib.ContainsFunc,
			"format":   stdlib.FormatFunc,
			"join":     stdlib.JoinFunc,
			"lower":    stdlib.LowerFunc,
			"upper":    stdlib.UpperFunc,
		},
	}
}

func (s *script) definedFunc() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "name", Type: cty.String}},
		Type:   function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.BoolVal(s.scope.Defined(args[0].AsString())), nil
		},
	})
}

// expandFunc evaluates a macro in the unit scope at load time.
func (s *script) expandFunc() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "macro", Type: cty.String}},
		Type:   function.StaticReturnType(cty.List(cty.String)),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			values, err := s.loader.eval.Expand(s.scope, args[0].AsString(), macro.Sequence, s.unit.Location)
			if err != nil {
				s.failure = err
				return cty.NilVal, err
			}
			if len(values) == 0 {
				return cty.ListValEmpty(cty.String), nil
			}
			elems := make([]cty.Value, len(values))
			for i, v := range values {
				elems[i] = cty.StringVal(v)
			}
			return cty.ListVal(elems), nil
		},
	})
}

// flatten converts a value into strings. Collections are flattened recursively,
// primitive values are converted to their string form.
func flatten(v cty.Value) ([]string, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, zerr.Wrap(domain.ErrSyntax, "value is not known at load time")
	}
	ty := v.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		var out []string
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			values, err := flatten(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, values...)
		}
		return out, nil
	}
	str, err := convert.Convert(v, cty.String)
	if err != nil {
		return nil, zerr.Wrap(domain.ErrSyntax, "cannot use "+ty.FriendlyName()+" as a macro: "+err.Error())
	}
	return []string{str.AsString()}, nil
}
