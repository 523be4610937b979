package main

// registry maps live connections to the code they registered.
//
// It is owned by the hub goroutine and is not safe for concurrent use.
// Several connections may register the same code; lookup returns the one
// that registered it first and is still connected.
type registry struct {
	codes  map[connID]string
	byCode map[string][]connID
}

func newRegistry() *registry {
	return &registry{
		codes:  make(map[connID]string),
		byCode: make(map[string][]connID),
	}
}

// register associates id with code, replacing any code id held before.
// It returns the previous code, if any.
func (r *registry) register(id connID, code string) (string, bool) {
	prev, ok := r.codes[id]
	if ok && prev == code {
		return prev, true
	}
	if ok {
		r.unindex(id, prev)
	}
	r.codes[id] = code
	r.byCode[code] = append(r.byCode[code], id)
	return prev, ok
}

// unregister removes id and returns the code it held.
func (r *registry) unregister(id connID) (string, bool) {
	code, ok := r.codes[id]
	if !ok {
		return "", false
	}
	delete(r.codes, id)
	r.unindex(id, code)
	return code, true
}

func (r *registry) lookup(code string) (connID, bool) {
	ids := r.byCode[code]
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

func (r *registry) len() int {
	return len(r.codes)
}

func (r *registry) unindex(id connID, code string) {
	ids := r.byCode[code]
	for i := range ids {
		if ids[i] == id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(r.byCode, code)
		return
	}
	r.byCode[code] = ids
}
