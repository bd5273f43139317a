package interp

import (
	"fmt"

	"github.com/tidwall/gjson"

	l3errors "l3/internal/errors"
	"l3/internal/hashutil"
	"l3/internal/humanizefmt"
	"l3/internal/idgen"
	"l3/internal/jsonutil"
	"l3/internal/sortutil"
	"l3/internal/textcase"
	"l3/internal/vm"
)

// domainBuiltins wires the intrinsics that reach outside the pure
// evaluation core into the supporting packages (uuid/hash/humanize/json
// /natural-sort/sql/websocket/case-conversion).
func domainBuiltins() map[string]vm.BuiltinFunc {
	return map[string]vm.BuiltinFunc{
		"uuid":            biUUID,
		"hash":            biHash,
		"humanize_bytes":  biHumanizeBytes,
		"humanize_time":   biHumanizeTime,
		"json_get":        biJSONGet,
		"json_set":        biJSONSet,
		"natural_sort":    biNaturalSort,
		"db_open":         biDBOpen,
		"db_exec":         biDBExec,
		"db_query":        biDBQuery,
		"ws_dial":         biWSDial,
		"ws_send":         biWSSend,
		"ws_recv":         biWSRecv,
		"upper":           biUpper,
		"lower":           biLower,
		"title":           biTitle,
	}
}

func biUUID(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 0 {
		return vm.Ref{}, l3errors.Typef("uuid() takes no arguments")
	}
	return ip.Heap.Alloc(vm.String{Val: idgen.New()}), nil
}

func oneString(args []vm.Ref, who string) (string, error) {
	if len(args) != 1 {
		return "", l3errors.Typef("%s() takes exactly 1 argument", who)
	}
	return FormatValue(args[0].Get()), nil
}

func biHash(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	s, err := oneString(args, "hash")
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.Heap.Alloc(vm.String{Val: hashutil.Hex(s)}), nil
}

func oneInt(args []vm.Ref, who string) (int64, error) {
	if len(args) != 1 {
		return 0, l3errors.Typef("%s() takes exactly 1 argument", who)
	}
	n, ok := args[0].Get().(vm.Int)
	if !ok {
		return 0, l3errors.Typef("%s() takes an integer argument", who)
	}
	return n.Val, nil
}

func biHumanizeBytes(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	n, err := oneInt(args, "humanize_bytes")
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.Heap.Alloc(vm.String{Val: humanizefmt.Bytes(n)}), nil
}

func biHumanizeTime(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	n, err := oneInt(args, "humanize_time")
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.Heap.Alloc(vm.String{Val: humanizefmt.RelativeSeconds(n)}), nil
}

func asString(r vm.Ref, who string) (string, error) {
	s, ok := r.Get().(vm.String)
	if !ok {
		return "", l3errors.Typef("%s() takes a string argument", who)
	}
	return s.Val, nil
}

func biJSONGet(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 2 {
		return vm.Ref{}, l3errors.Typef("json_get() takes exactly 2 arguments")
	}
	doc, err := asString(args[0], "json_get")
	if err != nil {
		return vm.Ref{}, err
	}
	path, err := asString(args[1], "json_get")
	if err != nil {
		return vm.Ref{}, err
	}
	res := jsonutil.Get(doc, path)
	if !res.Exists {
		return ip.Heap.NilRef(), nil
	}
	return ip.Heap.Alloc(gjsonValueToL3(res)), nil
}

func gjsonValueToL3(res jsonutil.Result) vm.Value {
	switch res.Kind {
	case gjson.True:
		return vm.Bool{Val: true}
	case gjson.False:
		return vm.Bool{Val: false}
	case gjson.Number:
		if res.Num == float64(int64(res.Num)) {
			return vm.Int{Val: int64(res.Num)}
		}
		return vm.Float{Val: res.Num}
	case gjson.String:
		return vm.String{Val: res.Str}
	case gjson.JSON:
		if res.Array != nil {
			elems := make([]vm.Ref, len(res.Array))
			for i, e := range res.Array {
				elems[i] = vm.NewConstRef(gjsonValueToL3(jsonutil.Result{
					Kind: e.Type, Str: e.Str, Num: e.Num, Bool: e.Bool(), Exists: e.Exists(),
				}))
			}
			return vm.Vector{Elems: elems}
		}
		return vm.String{Val: res.Str}
	}
	return vm.Nil{}
}

func biJSONSet(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 3 {
		return vm.Ref{}, l3errors.Typef("json_set() takes exactly 3 arguments")
	}
	doc, err := asString(args[0], "json_set")
	if err != nil {
		return vm.Ref{}, err
	}
	path, err := asString(args[1], "json_set")
	if err != nil {
		return vm.Ref{}, err
	}
	out, err := jsonutil.Set(doc, path, l3ValueToPlain(args[2].Get()))
	if err != nil {
		return vm.Ref{}, l3errors.Wrap(err, "json_set failed")
	}
	return ip.Heap.Alloc(vm.String{Val: out}), nil
}

func l3ValueToPlain(v vm.Value) any {
	switch x := v.(type) {
	case vm.Nil:
		return nil
	case vm.Bool:
		return x.Val
	case vm.Int:
		return x.Val
	case vm.Float:
		return x.Val
	case vm.String:
		return x.Val
	case vm.Vector:
		out := make([]any, len(x.Elems))
		for i, e := range x.Elems {
			out[i] = l3ValueToPlain(e.Get())
		}
		return out
	}
	return nil
}

func biNaturalSort(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Typef("natural_sort() takes exactly 1 argument")
	}
	vec, ok := args[0].Get().(vm.Vector)
	if !ok {
		return vm.Ref{}, l3errors.Typef("natural_sort() takes a vector argument")
	}
	in := make([]string, len(vec.Elems))
	for i, e := range vec.Elems {
		s, ok := e.Get().(vm.String)
		if !ok {
			return vm.Ref{}, l3errors.Typef("natural_sort() takes only a vector of strings")
		}
		in[i] = s.Val
	}
	sorted := sortutil.Strings(in)
	out := make([]vm.Ref, len(sorted))
	for i, s := range sorted {
		out[i] = ip.Heap.Alloc(vm.String{Val: s})
	}
	return ip.Heap.Alloc(vm.Vector{Elems: out}), nil
}

func biDBOpen(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	dsn, err := oneString(args, "db_open")
	if err != nil {
		return vm.Ref{}, err
	}
	h, err := ip.DB.Open(dsn)
	if err != nil {
		return vm.Ref{}, l3errors.Wrap(err, "db_open failed")
	}
	return ip.Heap.Alloc(vm.Int{Val: h}), nil
}

func biDBExec(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 2 {
		return vm.Ref{}, l3errors.Typef("db_exec() takes exactly 2 arguments")
	}
	handle, err := oneInt(args[:1], "db_exec")
	if err != nil {
		return vm.Ref{}, err
	}
	query, err := asString(args[1], "db_exec")
	if err != nil {
		return vm.Ref{}, err
	}
	n, err := ip.DB.Exec(handle, query)
	if err != nil {
		return vm.Ref{}, l3errors.Wrap(err, "db_exec failed")
	}
	return ip.Heap.Alloc(vm.Int{Val: n}), nil
}

func biDBQuery(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 2 {
		return vm.Ref{}, l3errors.Typef("db_query() takes exactly 2 arguments")
	}
	handle, err := oneInt(args[:1], "db_query")
	if err != nil {
		return vm.Ref{}, err
	}
	query, err := asString(args[1], "db_query")
	if err != nil {
		return vm.Ref{}, err
	}
	rows, err := ip.DB.Query(handle, query)
	if err != nil {
		return vm.Ref{}, l3errors.Wrap(err, "db_query failed")
	}
	outRows := make([]vm.Ref, len(rows))
	for i, row := range rows {
		cols := make([]vm.Ref, len(row))
		for j, c := range row {
			cols[j] = ip.Heap.Alloc(plainToL3Value(c))
		}
		outRows[i] = ip.Heap.Alloc(vm.Vector{Elems: cols})
	}
	return ip.Heap.Alloc(vm.Vector{Elems: outRows}), nil
}

func plainToL3Value(v any) vm.Value {
	switch x := v.(type) {
	case nil:
		return vm.Nil{}
	case bool:
		return vm.Bool{Val: x}
	case int64:
		return vm.Int{Val: x}
	case float64:
		return vm.Float{Val: x}
	case string:
		return vm.String{Val: x}
	case []byte:
		return vm.String{Val: string(x)}
	}
	return vm.String{Val: fmt.Sprintf("%v", v)}
}

func biWSDial(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	url, err := oneString(args, "ws_dial")
	if err != nil {
		return vm.Ref{}, err
	}
	h, err := ip.WS.Dial(url)
	if err != nil {
		return vm.Ref{}, l3errors.Wrap(err, "ws_dial failed")
	}
	return ip.Heap.Alloc(vm.Int{Val: h}), nil
}

func biWSSend(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 2 {
		return vm.Ref{}, l3errors.Typef("ws_send() takes exactly 2 arguments")
	}
	handle, err := oneInt(args[:1], "ws_send")
	if err != nil {
		return vm.Ref{}, err
	}
	msg, err := asString(args[1], "ws_send")
	if err != nil {
		return vm.Ref{}, err
	}
	if err := ip.WS.Send(handle, msg); err != nil {
		return vm.Ref{}, l3errors.Wrap(err, "ws_send failed")
	}
	return ip.Heap.NilRef(), nil
}

func biWSRecv(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	handle, err := oneInt(args, "ws_recv")
	if err != nil {
		return vm.Ref{}, err
	}
	msg, err := ip.WS.Recv(handle)
	if err != nil {
		return vm.Ref{}, l3errors.Wrap(err, "ws_recv failed")
	}
	return ip.Heap.Alloc(vm.String{Val: msg}), nil
}

func biUpper(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Typef("upper() takes exactly 1 argument")
	}
	s, err := asString(args[0], "upper")
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.Heap.Alloc(vm.String{Val: textcase.Upper(s)}), nil
}

func biLower(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Typef("lower() takes exactly 1 argument")
	}
	s, err := asString(args[0], "lower")
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.Heap.Alloc(vm.String{Val: textcase.Lower(s)}), nil
}

func biTitle(env vm.Env, args []vm.Ref) (vm.Ref, error) {
	ip := asInterp(env)
	if len(args) != 1 {
		return vm.Ref{}, l3errors.Typef("title() takes exactly 1 argument")
	}
	s, err := asString(args[0], "title")
	if err != nil {
		return vm.Ref{}, err
	}
	return ip.Heap.Alloc(vm.String{Val: textcase.Title(s)}), nil
}
