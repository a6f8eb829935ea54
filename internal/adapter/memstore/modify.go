package memstore

import "fmt"

type modFunc func(doc map[string]any, field string, arg any) error

var mods = map[string]modFunc{
	"$set":         modSet,
	"$unset":       modUnset,
	"$inc":         modInc,
	"$mul":         modMul,
	"$min":         modMin,
	"$max":         modMax,
	"$rename":      modRename,
	"$push":        modPush,
	"$pushAll":     modPushAll,
	"$addToSet":    modAddToSet,
	"$pop":         modPop,
	"$pull":        modPull,
	"$pullAll":     modPullAll,
	"$setOnInsert": modSetOnInsert,
	"$bit":         modBit,
}

// modify applies a native update document to a copy of doc and returns the
// result. An update carrying any plain field replaces the document instead,
// mirroring the store dialect's replace semantics; the caller reapplies the
// locator afterwards.
func modify(doc map[string]any, update map[string]any) (map[string]any, error) {
	for key := range update {
		if _, ok := mods[key]; !ok {
			return copyRecord(update), nil
		}
	}

	res := copyRecord(doc)
	for op, arg := range update {
		fields, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("modifier %s's argument must be an object", op)
		}
		for field, value := range fields {
			if err := mods[op](res, field, value); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

func modSet(doc map[string]any, field string, arg any) error {
	doc[field] = arg
	return nil
}

func modUnset(doc map[string]any, field string, _ any) error {
	delete(doc, field)
	return nil
}

func modInc(doc map[string]any, field string, arg any) error {
	inc, ok := asFloat(arg)
	if !ok {
		return fmt.Errorf("$inc requires a numeric argument")
	}
	current := 0.0
	if v, present := doc[field]; present && v != nil {
		if current, ok = asFloat(v); !ok {
			return fmt.Errorf("cannot $inc non-number field %s", field)
		}
	}
	doc[field] = current + inc
	return nil
}

func modMul(doc map[string]any, field string, arg any) error {
	mul, ok := asFloat(arg)
	if !ok {
		return fmt.Errorf("$mul requires a numeric argument")
	}
	current := 0.0
	if v, present := doc[field]; present && v != nil {
		if current, ok = asFloat(v); !ok {
			return fmt.Errorf("cannot $mul non-number field %s", field)
		}
	}
	doc[field] = current * mul
	return nil
}

func modMin(doc map[string]any, field string, arg any) error {
	current, present := doc[field]
	if !present {
		doc[field] = arg
		return nil
	}
	if c, ok := compare(arg, current); ok && c < 0 {
		doc[field] = arg
	}
	return nil
}

func modMax(doc map[string]any, field string, arg any) error {
	current, present := doc[field]
	if !present {
		doc[field] = arg
		return nil
	}
	if c, ok := compare(arg, current); ok && c > 0 {
		doc[field] = arg
	}
	return nil
}

func modRename(doc map[string]any, field string, arg any) error {
	newName, ok := arg.(string)
	if !ok {
		return fmt.Errorf("$rename requires a string argument")
	}
	value, present := doc[field]
	if !present {
		return nil
	}
	delete(doc, field)
	doc[newName] = value
	return nil
}

func modPush(doc map[string]any, field string, arg any) error {
	arr, err := arrayField(doc, field)
	if err != nil {
		return err
	}
	doc[field] = append(arr, arg)
	return nil
}

func modPushAll(doc map[string]any, field string, arg any) error {
	values, ok := arg.([]any)
	if !ok {
		return fmt.Errorf("$pushAll requires an array argument")
	}
	arr, err := arrayField(doc, field)
	if err != nil {
		return err
	}
	doc[field] = append(arr, values...)
	return nil
}

func modAddToSet(doc map[string]any, field string, arg any) error {
	arr, err := arrayField(doc, field)
	if err != nil {
		return err
	}
	for _, item := range arr {
		if equal(item, arg) {
			return nil
		}
	}
	doc[field] = append(arr, arg)
	return nil
}

func modPop(doc map[string]any, field string, arg any) error {
	n, ok := asFloat(arg)
	if !ok {
		return fmt.Errorf("$pop requires a numeric argument")
	}
	arr, err := arrayField(doc, field)
	if err != nil {
		return err
	}
	if len(arr) == 0 || n == 0 {
		return nil
	}
	if n < 0 {
		doc[field] = arr[1:]
	} else {
		doc[field] = arr[:len(arr)-1]
	}
	return nil
}

func modPull(doc map[string]any, field string, arg any) error {
	arr, err := arrayField(doc, field)
	if err != nil {
		return err
	}
	res := make([]any, 0, len(arr))
	for _, item := range arr {
		if !equal(item, arg) {
			res = append(res, item)
		}
	}
	doc[field] = res
	return nil
}

func modPullAll(doc map[string]any, field string, arg any) error {
	values, ok := arg.([]any)
	if !ok {
		return fmt.Errorf("$pullAll requires an array argument")
	}
	arr, err := arrayField(doc, field)
	if err != nil {
		return err
	}
	res := make([]any, 0, len(arr))
	for _, item := range arr {
		keep := true
		for _, drop := range values {
			if equal(item, drop) {
				keep = false
				break
			}
		}
		if keep {
			res = append(res, item)
		}
	}
	doc[field] = res
	return nil
}

// modSetOnInsert is a no-op: the store's update path never inserts.
func modSetOnInsert(map[string]any, string, any) error {
	return nil
}

func modBit(doc map[string]any, field string, arg any) error {
	ops, ok := arg.(map[string]any)
	if !ok {
		return fmt.Errorf("$bit requires an object argument")
	}
	current := int64(0)
	if v, present := doc[field]; present && v != nil {
		f, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("cannot $bit non-number field %s", field)
		}
		current = int64(f)
	}
	for op, operand := range ops {
		f, ok := asFloat(operand)
		if !ok {
			return fmt.Errorf("$bit operands must be numeric")
		}
		n := int64(f)
		switch op {
		case "and":
			current &= n
		case "or":
			current |= n
		case "xor":
			current ^= n
		default:
			return fmt.Errorf("unknown $bit operation %s", op)
		}
	}
	doc[field] = current
	return nil
}

func arrayField(doc map[string]any, field string) ([]any, error) {
	value, present := doc[field]
	if !present || value == nil {
		return []any{}, nil
	}
	arr, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("field %s is not an array", field)
	}
	return arr, nil
}
