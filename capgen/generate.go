package capgen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"
)

const bridgePath = "github.com/chazu/willie/bridge"

// GenerateCapabilities renders a Go source file whose Register function
// installs one built-in capability per wrappable function in the model.
func GenerateCapabilities(model *PackageModel) (string, error) {
	f := jen.NewFile("capwrap_" + sanitizePackageName(model.Name))
	f.HeaderComment("Code generated by capgen. DO NOT EDIT.")
	f.ImportName(bridgePath, "bridge")
	f.ImportName(model.ImportPath, model.Name)

	var body []jen.Code
	for _, fn := range model.Functions {
		info := jen.Qual(bridgePath, "CapabilityInfo").Values(jen.Dict{
			jen.Id("Name"):        jen.Lit(CapabilityName(model.Name, fn.Name)),
			jen.Id("Description"): jen.Lit(descriptionFor(model, fn)),
			jen.Id("Category"):    jen.Lit(model.Name),
			jen.Id("Arity"):       jen.Lit(len(fn.Params)),
			jen.Id("Keywords"):    keywordLits(model.Name, fn.Name),
		})
		wrapper := jen.Func().
			Params(jen.Id("args").Index().Index().Byte()).
			Params(jen.Index().Byte(), jen.Error()).
			Block(wrapperBody(model, fn)...)

		body = append(body,
			jen.If(
				jen.Err().Op(":=").Id("reg").Dot("RegisterFunc").Call(info, wrapper),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
		)
	}
	body = append(body, jen.Return(jen.Nil()))

	f.Comment("Register installs capabilities wrapping " + model.ImportPath + ".")
	f.Func().Id("Register").
		Params(jen.Id("reg").Op("*").Qual(bridgePath, "BuiltinRegistry")).
		Error().
		Block(body...)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", fmt.Errorf("rendering %s wrappers: %w", model.Name, err)
	}
	return buf.String(), nil
}

// wrapperBody adapts one Go function to the capability calling
// convention. Each wrapper guards its own arity before indexing args.
func wrapperBody(model *PackageModel, fn FunctionModel) []jen.Code {
	capName := CapabilityName(model.Name, fn.Name)
	guard := jen.If(jen.Len(jen.Id("args")).Op("!=").Lit(len(fn.Params))).Block(
		jen.Return(jen.Nil(), jen.Qual("fmt", "Errorf").Call(
			jen.Lit("%w: "+capName+" takes "+strconv.Itoa(len(fn.Params))+" buffers, got %d"),
			jen.Qual(bridgePath, "ErrInvalidArgCount"),
			jen.Len(jen.Id("args")),
		)),
	)

	callArgs := make([]jen.Code, len(fn.Params))
	for i, kind := range fn.Params {
		arg := jen.Id("args").Index(jen.Lit(i))
		if kind == ArgString {
			arg = jen.String().Call(arg)
		}
		callArgs[i] = arg
	}
	call := jen.Qual(model.ImportPath, fn.Name).Call(callArgs...)

	switch {
	case fn.ReturnsErr && fn.Result == ArgBytes:
		return []jen.Code{guard, jen.Return(call)}
	case fn.ReturnsErr && fn.Result == ArgString:
		return []jen.Code{
			guard,
			jen.List(jen.Id("out"), jen.Err()).Op(":=").Add(call),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.Return(jen.Index().Byte().Call(jen.Id("out")), jen.Nil()),
		}
	case fn.Result == ArgBytes:
		return []jen.Code{guard, jen.Return(call, jen.Nil())}
	default:
		return []jen.Code{guard, jen.Return(jen.Index().Byte().Call(call), jen.Nil())}
	}
}

func keywordLits(pkgName, funcName string) jen.Code {
	keywords := KeywordsFor(pkgName, funcName)
	lits := make([]jen.Code, len(keywords))
	for i, k := range keywords {
		lits[i] = jen.Lit(k)
	}
	return jen.Index().String().Values(lits...)
}

func descriptionFor(model *PackageModel, fn FunctionModel) string {
	if fn.Doc != "" {
		return firstSentence(fn.Doc)
	}
	return fn.Name + " from " + model.ImportPath
}

// firstSentence trims a doc comment to its opening sentence.
func firstSentence(doc string) string {
	doc = strings.Join(strings.Fields(doc), " ")
	if i := strings.Index(doc, ". "); i >= 0 {
		return doc[:i+1]
	}
	return doc
}

// sanitizePackageName makes a short package name safe as a Go
// identifier suffix.
func sanitizePackageName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else if r >= 'A' && r <= 'Z' {
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
