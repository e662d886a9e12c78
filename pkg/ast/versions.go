package ast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CurrentVersion is the newest Core IL version this pipeline accepts.
const CurrentVersion = "coreil-1.10.5"

// SupportedVersions lists every accepted version identifier.
//
// Version history:
//   - 1.10.5: Import statement for the multi-file module system
//   - 1.10:   Switch
//   - 1.9:    ToInt, ToFloat, ToString
//   - 1.8:    TryCatch, Throw
//   - 1.7:    Break, Continue
//   - 1.6:    ExternalCall, MethodCall, PropertyGet (Tier 2)
//   - 1.5:    Slice, negative indexing, Not
//   - 1.4:    consolidated 1.2 math + 1.3 JSON/regex
//   - 1.3:    JsonParse, JsonStringify, regex operations
//   - 1.2:    Math, MathPow, MathConst
//   - 1.1:    Record, GetField, SetField, sets, deques, heaps, string ops
//   - 1.0:    stable release (frozen)
//   - 0.5:    sealed primitives (GetDefault, Keys, Push, Tuple)
//   - 0.3:    FuncDef, Return, For, ForEach
//   - 0.2:    arrays and indexing
//   - 0.1:    basic statements and expressions
var SupportedVersions = map[string]bool{
	"coreil-0.1": true, "coreil-0.2": true, "coreil-0.3": true,
	"coreil-0.4": true, "coreil-0.5": true, "coreil-1.0": true,
	"coreil-1.1": true, "coreil-1.2": true, "coreil-1.3": true,
	"coreil-1.4": true, "coreil-1.5": true, "coreil-1.6": true,
	"coreil-1.7": true, "coreil-1.8": true, "coreil-1.9": true,
	"coreil-1.10": true, "coreil-1.10.5": true,
}

// SealedHelperCalls are the helper function names that sealed versions
// reject in favor of explicit primitives.
var SealedHelperCalls = map[string]bool{
	"get_or_default": true,
	"keys":           true,
	"append":         true,
	"entries":        true,
}

// nodeMinVersion gates node types introduced after 0.1. Absent entries
// are legal from 0.1 on.
var nodeMinVersion = map[string]string{
	"Array": "coreil-0.2", "Index": "coreil-0.2", "Length": "coreil-0.2",
	"SetIndex": "coreil-0.2", "Push": "coreil-0.5",
	"FuncDef": "coreil-0.3", "Return": "coreil-0.3",
	"For": "coreil-0.3", "ForEach": "coreil-0.3", "Range": "coreil-0.3",
	"Map": "coreil-0.4", "Get": "coreil-0.4", "Set": "coreil-0.4",
	"GetDefault": "coreil-0.5", "Keys": "coreil-0.5", "Tuple": "coreil-0.5",
	"Record": "coreil-1.1", "GetField": "coreil-1.1", "SetField": "coreil-1.1",
	"SetHas": "coreil-1.1", "SetSize": "coreil-1.1", "SetAdd": "coreil-1.1",
	"SetRemove": "coreil-1.1", "DequeNew": "coreil-1.1", "DequeSize": "coreil-1.1",
	"PushBack": "coreil-1.1", "PushFront": "coreil-1.1",
	"PopFront": "coreil-1.1", "PopBack": "coreil-1.1",
	"HeapNew": "coreil-1.1", "HeapPush": "coreil-1.1", "HeapPop": "coreil-1.1",
	"HeapPeek": "coreil-1.1", "HeapSize": "coreil-1.1",
	"StringLength": "coreil-1.1", "StringTrim": "coreil-1.1",
	"StringUpper": "coreil-1.1", "StringLower": "coreil-1.1",
	"Substring": "coreil-1.1", "CharAt": "coreil-1.1", "Join": "coreil-1.1",
	"StringSplit": "coreil-1.1", "StringStartsWith": "coreil-1.1",
	"StringEndsWith": "coreil-1.1", "StringContains": "coreil-1.1",
	"StringReplace": "coreil-1.1", "StringFormat": "coreil-1.1",
	"Math": "coreil-1.2", "MathPow": "coreil-1.2", "MathConst": "coreil-1.2",
	"JsonParse": "coreil-1.3", "JsonStringify": "coreil-1.3",
	"RegexMatch": "coreil-1.3", "RegexFindAll": "coreil-1.3",
	"RegexReplace": "coreil-1.3", "RegexSplit": "coreil-1.3",
	"Slice": "coreil-1.5", "Not": "coreil-1.5", "Ternary": "coreil-1.5",
	"ExternalCall": "coreil-1.6", "MethodCall": "coreil-1.6",
	"PropertyGet": "coreil-1.6",
	"Break":       "coreil-1.7", "Continue": "coreil-1.7",
	"TryCatch": "coreil-1.8", "Throw": "coreil-1.8",
	"ToInt": "coreil-1.9", "ToFloat": "coreil-1.9", "ToString": "coreil-1.9",
	"Switch": "coreil-1.10",
	"Import": "coreil-1.10.5",
}

func versionParts(version string) ([]int, bool) {
	raw, ok := strings.CutPrefix(version, "coreil-")
	if !ok {
		return nil, false
	}
	fields := strings.Split(raw, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		parts = append(parts, n)
	}
	return parts, len(parts) > 0
}

// CompareVersions orders two version identifiers numerically. Unparsable
// identifiers compare as the oldest possible version.
func CompareVersions(a, b string) int {
	pa, _ := versionParts(a)
	pb, _ := versionParts(b)
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var na, nb int
		if i < len(pa) {
			na = pa[i]
		}
		if i < len(pb) {
			nb = pb[i]
		}
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsSealed reports whether the version forbids the helper-call denylist.
// Every version from 0.5 on is sealed.
func IsSealed(version string) bool {
	parts, ok := versionParts(version)
	if !ok {
		return false
	}
	major := parts[0]
	minor := 0
	if len(parts) > 1 {
		minor = parts[1]
	}
	return (major == 0 && minor >= 5) || major >= 1
}

// NodeAllowedIn reports whether the node type is legal in the version.
func NodeAllowedIn(nodeType, version string) bool {
	min, gated := nodeMinVersion[nodeType]
	if !gated {
		return true
	}
	return CompareVersions(version, min) >= 0
}

// VersionErrorMessage lists the supported versions for diagnostics.
func VersionErrorMessage() string {
	versions := make([]string, 0, len(SupportedVersions))
	for v := range SupportedVersions {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
	quoted := make([]string, len(versions))
	for i, v := range versions {
		quoted[i] = fmt.Sprintf("'%s'", v)
	}
	return "version must be one of: " + strings.Join(quoted, ", ")
}
