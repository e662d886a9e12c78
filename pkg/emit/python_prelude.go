package emit

// pythonPrelude is prepended to every emitted Python program. CPython
// agrees with the evaluator on dict ordering and slice clamping, but
// its operators coerce across kinds (True == 1, True < 2), so every
// comparison and arithmetic op routes through a helper that enforces
// the evaluator's kind rules and error texts. The rest covers strict
// truthiness, canonical float text, insertion-ordered sets, stable
// heaps and bounds-checked indexing.
const pythonPrelude = `import collections
import decimal
import heapq
import json
import math
import os
import re
import sys
import time


class _Thrown(Exception):
    pass


def _fail(kind, value, tb):
    if issubclass(kind, KeyboardInterrupt):
        sys.__excepthook__(kind, value, tb)
        return
    print("runtime error: " + str(value))
    sys.stdout.flush()
    os._exit(1)


sys.excepthook = _fail


def _truthy(v):
    return not (v is None or v is False or (not isinstance(v, bool) and isinstance(v, (int, float)) and v == 0))


def _kind(v):
    if v is None:
        return "null"
    if isinstance(v, bool):
        return "bool"
    if isinstance(v, int):
        return "int"
    if isinstance(v, float):
        return "float"
    if isinstance(v, str):
        return "string"
    if isinstance(v, list):
        return "array"
    if isinstance(v, tuple):
        return "tuple"
    if isinstance(v, dict):
        return "map"
    if isinstance(v, _Set):
        return "set"
    if isinstance(v, _Record):
        return "record"
    if isinstance(v, _Deque):
        return "deque"
    if isinstance(v, _Heap):
        return "heap"
    if isinstance(v, range):
        return "range"
    return type(v).__name__


def _isnum(v):
    return not isinstance(v, bool) and isinstance(v, (int, float))


def _eq(a, b):
    ka = _kind(a)
    kb = _kind(b)
    if ka != kb:
        return _isnum(a) and _isnum(b) and float(a) == float(b)
    if ka == "array" or ka == "tuple":
        return len(a) == len(b) and all(_eq(x, y) for x, y in zip(a, b))
    if ka == "map":
        if len(a) != len(b):
            return False
        for k, v in a.items():
            if k not in b or not _eq(v, b[k]):
                return False
        return True
    if ka == "set":
        return len(a) == len(b) and all(b.has(x) for x in a)
    if ka == "record":
        if len(a._fields) != len(b._fields):
            return False
        for k, v in a._fields.items():
            if k not in b._fields or not _eq(v, b._fields[k]):
                return False
        return True
    if ka == "deque" or ka == "heap":
        return a is b
    return a == b


def _lt(a, b):
    if _isnum(a) and _isnum(b):
        return a < b
    if isinstance(a, str) and isinstance(b, str):
        return a < b
    raise _Thrown("cannot compare %s and %s" % (_kind(a), _kind(b)))


def _le(a, b):
    return not _lt(b, a)


def _gt(a, b):
    return _lt(b, a)


def _ge(a, b):
    return not _lt(a, b)


def _add(a, b):
    if isinstance(a, str) and isinstance(b, str):
        return a + b
    if _kind(a) == "int" and _kind(b) == "int":
        return a + b
    if _isnum(a) and _isnum(b):
        return float(a) + float(b)
    raise _Thrown("cannot add %s and %s" % (_kind(a), _kind(b)))


def _sub(a, b):
    if _kind(a) == "int" and _kind(b) == "int":
        return a - b
    if _isnum(a) and _isnum(b):
        return float(a) - float(b)
    raise _Thrown("cannot subtract %s and %s" % (_kind(a), _kind(b)))


def _mul(a, b):
    if _kind(a) == "int" and _kind(b) == "int":
        return a * b
    if _isnum(a) and _isnum(b):
        return float(a) * float(b)
    raise _Thrown("cannot multiply %s and %s" % (_kind(a), _kind(b)))


def _div(a, b):
    if not _isnum(a) or not _isnum(b):
        raise _Thrown("cannot divide %s by %s" % (_kind(a), _kind(b)))
    if b == 0:
        raise _Thrown("division by zero")
    return a / b


def _fdiv(a, b):
    if not _isnum(a) or not _isnum(b):
        raise _Thrown("cannot divide %s by %s" % (_kind(a), _kind(b)))
    if b == 0:
        raise _Thrown("division by zero")
    return a // b


def _mod(a, b):
    if not _isnum(a) or not _isnum(b):
        raise _Thrown("cannot modulo %s and %s" % (_kind(a), _kind(b)))
    if b == 0:
        raise _Thrown("modulo by zero")
    return a % b


def _fmtf(f):
    if math.isnan(f):
        return "NaN"
    if math.isinf(f):
        return "+Inf" if f > 0 else "-Inf"
    text = repr(f)
    if "e" in text or "E" in text:
        text = format(decimal.Decimal(text), "f")
    if "." not in text:
        text += ".0"
    return text


def _s(v):
    if v is True:
        return "True"
    if v is False:
        return "False"
    if v is None:
        return "None"
    if isinstance(v, float):
        return _fmtf(v)
    return str(v)


def _print(*args):
    print(" ".join(_s(a) for a in args))


def _input(prompt=""):
    try:
        return input(_s(prompt) if prompt != "" else "")
    except EOFError:
        print()
        return ""


def _toint(v):
    if v is True:
        return 1
    if v is False:
        return 0
    if isinstance(v, int):
        return v
    if isinstance(v, float):
        return math.trunc(v)
    if isinstance(v, str):
        try:
            return int(v.strip(), 10)
        except ValueError:
            raise _Thrown("cannot convert '" + v + "' to int") from None
    raise _Thrown("cannot convert value to int")


def _tofloat(v):
    if v is True:
        return 1.0
    if v is False:
        return 0.0
    if isinstance(v, (int, float)):
        return float(v)
    if isinstance(v, str):
        try:
            return float(v.strip())
        except ValueError:
            raise _Thrown("cannot convert '" + v + "' to float") from None
    raise _Thrown("cannot convert value to float")


def _at(base, i):
    n = len(base)
    j = i + n if i < 0 else i
    if j < 0 or j >= n:
        if isinstance(base, str):
            raise _Thrown("index %d out of range for string of length %d" % (i, n))
        if isinstance(base, range):
            raise _Thrown("index %d out of range" % i)
        raise _Thrown("index %d out of range for array of length %d" % (i, n))
    return base[j]


def _setat(base, i, value):
    n = len(base)
    j = i + n if i < 0 else i
    if j < 0 or j >= n:
        raise _Thrown("index %d out of range for array of length %d" % (i, n))
    base[j] = value


def _substr(base, start, end):
    n = len(base)
    if start < 0 or end < 0 or start > n or end > n:
        raise _Thrown("Substring range [%d:%d) out of bounds for string of length %d" % (start, end, n))
    if start > end:
        return ""
    return base[start:end]


def _charat(base, i):
    if i < 0 or i >= len(base):
        raise _Thrown("CharAt index %d out of bounds for string of length %d" % (i, len(base)))
    return base[i]


def _sqrt(v):
    if v < 0:
        raise _Thrown("sqrt of negative number")
    return math.sqrt(v)


def _log(v):
    if v <= 0:
        raise _Thrown("log of non-positive number")
    return math.log(v)


def _iter(v):
    if isinstance(v, dict):
        return list(v.keys())
    return v


def _json(v, pretty):
    if pretty:
        return json.dumps(v, indent=2, default=_s)
    return json.dumps(v, separators=(", ", ": "), default=_s)


def _re(pattern, flags):
    f = 0
    if "i" in flags:
        f |= re.IGNORECASE
    if "m" in flags:
        f |= re.MULTILINE
    if "s" in flags:
        f |= re.DOTALL
    try:
        return re.compile(pattern, f)
    except re.error:
        raise _Thrown("invalid regex pattern '" + pattern + "'") from None


def _findall(pattern, flags, s):
    return [m.group(0) for m in _re(pattern, flags).finditer(s)]


def _get_or_default(m, key, default):
    return m.get(key, default)


def _entries(m):
    return [(k, v) for k, v in m.items()]


def _append(a, v):
    a.append(v)
    return a


def _extcall(name, args):
    if name == "fs.read_file":
        try:
            with open(args[0], "r", encoding="utf-8") as f:
                return f.read()
        except OSError as e:
            raise _Thrown(str(e)) from None
    if name == "fs.write_file":
        try:
            with open(args[0], "w", encoding="utf-8") as f:
                f.write(args[1])
        except OSError as e:
            raise _Thrown(str(e)) from None
        return None
    if name == "fs.exists":
        return os.path.exists(args[0])
    if name == "os.getenv":
        return os.environ.get(args[0], "")
    if name == "time.now":
        return time.time()
    raise _Thrown("unsupported external call '" + name + "'")


class _Set:
    def __init__(self, items=()):
        self._items = []
        for x in items:
            self.add(x)

    def add(self, v):
        if not self.has(v):
            self._items.append(v)

    def discard(self, v):
        for i, x in enumerate(self._items):
            if x == v:
                del self._items[i]
                return

    def has(self, v):
        return any(x == v for x in self._items)

    def __len__(self):
        return len(self._items)

    def __iter__(self):
        return iter(self._items)

    def __repr__(self):
        return "{" + ", ".join(repr(x) for x in self._items) + "}"


class _Record:
    def __init__(self, fields):
        self._fields = dict(fields)

    def get_field(self, name):
        if name not in self._fields:
            raise _Thrown("field '" + name + "' not found in record")
        return self._fields[name]

    def set_field(self, name, value):
        self._fields[name] = value

    def __eq__(self, other):
        return type(other) is type(self) and self._fields == other._fields

    def __repr__(self):
        return "Record(" + ", ".join("%s=%r" % (k, v) for k, v in self._fields.items()) + ")"


class _Deque(collections.deque):
    def __repr__(self):
        return "deque(%d)" % len(self)


class _Heap:
    def __init__(self):
        self._items = []
        self._seq = 0

    def push(self, priority, value):
        if not _isnum(priority):
            raise _Thrown("heap priority must be a number, got " + _kind(priority))
        heapq.heappush(self._items, (priority, self._seq, value))
        self._seq += 1

    def pop(self):
        if not self._items:
            raise _Thrown("pop from an empty heap")
        return heapq.heappop(self._items)[2]

    def peek(self):
        if not self._items:
            raise _Thrown("peek at an empty heap")
        return self._items[0][2]

    def __len__(self):
        return len(self._items)

    def __repr__(self):
        return "heap(%d)" % len(self)
`
