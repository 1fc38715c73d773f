package host

// Snippet is the source of a JavaScript function expression. Runtimes
// evaluate it once and call it with positional arguments.
type Snippet string

// Remote objects live in a page-global stash and are addressed by slot
// number, so every runtime only ever exchanges numbers, strings and booleans.
const stash = `(function () {
	var g = typeof globalThis !== "undefined" ? globalThis : this;
	if (!g.__ghostprobe) {
		g.__ghostprobe = {
			next: 1,
			slots: {},
			put: function (v) { var id = this.next++; this.slots[id] = v; return id; }
		};
	}
	return g.__ghostprobe;
})()`

func withStash(params, body string) Snippet {
	return Snippet("function (" + params + ") {\n\tvar s = " + stash + ";\n" + body + "\n}")
}

// BigInt literals are avoided so the snippets parse on engines without them.
var (
	snipDefined = Snippet(`function (name) {
	var g = typeof globalThis !== "undefined" ? globalThis : this;
	return typeof g[name] !== "undefined";
}`)

	snipFragment = Snippet(`function (body) {
	return new Function(body)();
}`)

	snipUserAgent = Snippet(`function () {
	return typeof navigator !== "undefined" && navigator.userAgent ? String(navigator.userAgent) : "";
}`)

	snipFirmware = Snippet(`function () {
	return typeof FW_VERSION !== "undefined" ? String(FW_VERSION) : null;
}`)

	snipRelease = withStash("slot", `	delete s.slots[slot];
	return null;`)

	snipSeqNew = withStash("n", `	return s.put(new Array(n));`)

	snipSeqFill = withStash("slot, from, to", `	var a = s.slots[slot];
	for (var i = from; i < to; i++) { a[i] = i; }
	return null;`)

	snipSeqAt = withStash("slot, i", `	return s.slots[slot][i];`)

	snipBigNew = withStash("seed", `	return s.put({ x: BigInt(seed) });`)

	snipBigStep = withStash("slot, n", `	var o = s.slots[slot], one = BigInt(1), x = o.x;
	for (var i = 0; i < n; i++) { x = (x << one) ^ one; }
	o.x = x;
	return null;`)

	snipBigBits = withStash("slot", `	return s.slots[slot].x.toString(2).length;`)

	snipWeakNew = withStash("", `	var target = { v: 1 };
	var ref = new WeakRef(target);
	target = null;
	return s.put(ref);`)

	snipWeakDeref = withStash("slot, n", `	var ref = s.slots[slot], seen = 0;
	for (var i = 0; i < n; i++) {
		var o = ref.deref();
		if (o) { seen += o.v; }
	}
	return seen;`)

	snipBuffer = Snippet(`function (size) {
	var view = new Uint8Array(new ArrayBuffer(size));
	view[0] = 1;
	view[size - 1] = 2;
	if (view[0] !== 1 || view[size - 1] !== 2) { throw new Error("buffer readback mismatch"); }
	return null;
}`)

	snipWasmNew = withStash("bytes", `	var mod = new WebAssembly.Module(new Uint8Array(bytes));
	return s.put(new WebAssembly.Instance(mod, {}));`)

	snipWasmCallable = withStash("slot, name", `	return typeof s.slots[slot].exports[name] === "function";`)

	snipWasmCall = withStash("slot, name, a, b", `	return s.slots[slot].exports[name](a, b);`)
)
