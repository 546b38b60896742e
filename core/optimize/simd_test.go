package optimize

import "testing"

func TestComparePathSIMDShortStrings(t *testing.T) {
	if !ComparePathSIMD("/a", "/a") {
		t.Fatal("identical short paths should compare equal")
	}
	if ComparePathSIMD("/a", "/b") {
		t.Fatal("differing short paths should compare unequal")
	}
	if ComparePathSIMD("/a", "/ab") {
		t.Fatal("differing-length paths should compare unequal")
	}
}

func TestComparePathSIMDLongStrings(t *testing.T) {
	a := "/api/v1/users/0123456789/profile"
	b := "/api/v1/users/0123456789/profile"
	c := "/api/v1/users/9876543210/profile"

	if !ComparePathSIMD(a, b) {
		t.Fatal("identical long paths should compare equal")
	}
	if ComparePathSIMD(a, c) {
		t.Fatal("long paths differing mid-string should compare unequal")
	}
	if ComparePathSIMD(a, a[:len(a)-1]) {
		t.Fatal("differing-length long paths should compare unequal")
	}
}

func TestComparePathSIMDUnalignedLength(t *testing.T) {
	// Length isn't a multiple of 8, exercising the word-at-a-time
	// loop's single-byte tail comparison.
	a := "/exactly_17chars/"
	b := "/exactly_17chars/"
	c := "/exactly_17chars?"

	if !ComparePathSIMD(a, b) {
		t.Fatal("identical paths should compare equal")
	}
	if ComparePathSIMD(a, c) {
		t.Fatal("paths differing only in the last byte should compare unequal")
	}
}
