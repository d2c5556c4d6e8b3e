package chainmap

import "testing"

func TestBucketIndexDeterministic(t *testing.T) {
	a, err := bucketIndex("apple", 64)
	if err != nil {
		t.Fatalf("bucketIndex failed: %v", err)
	}
	for i := 0; i < 100; i++ {
		b, err := bucketIndex("apple", 64)
		if err != nil {
			t.Fatalf("bucketIndex failed: %v", err)
		}
		if a != b {
			t.Fatalf("bucketIndex not deterministic: %d then %d", a, b)
		}
	}
}

func TestBucketIndexRange(t *testing.T) {
	keys := []string{
		"a", "z", "apple", "banana", "cherry",
		"UPPERCASE", "MixedCase", "with spaces and punctuation!",
		"1234567890", "\x01\x02\x03", "\xff\xfe",
		"a-rather-long-key-that-keeps-going-and-going-and-going",
	}
	for _, capacity := range []int{1, 2, 7, 64, 1009} {
		for _, key := range keys {
			idx, err := bucketIndex(key, capacity)
			if err != nil {
				t.Fatalf("bucketIndex(%q, %d) failed: %v", key, capacity, err)
			}
			if idx < 0 || idx >= capacity {
				t.Errorf("bucketIndex(%q, %d) = %d, out of range", key, capacity, idx)
			}
		}
	}
}

// Keys made of bytes below 'a' drive the rolling hash negative before the
// final fold; they must still land on a valid bucket.
func TestBucketIndexNegativeDigits(t *testing.T) {
	for _, key := range []string{"A", "Z", "0", "!", "\x01", "ABC123"} {
		idx, err := bucketIndex(key, 13)
		if err != nil {
			t.Fatalf("bucketIndex(%q) failed: %v", key, err)
		}
		if idx < 0 || idx >= 13 {
			t.Errorf("bucketIndex(%q) = %d, out of range", key, idx)
		}
	}
}

func TestBucketIndexErrors(t *testing.T) {
	if _, err := bucketIndex("", 8); err != ErrEmptyKey {
		t.Errorf("empty key: got %v, want ErrEmptyKey", err)
	}
	if _, err := bucketIndex("apple", 0); err != ErrZeroCapacity {
		t.Errorf("zero capacity: got %v, want ErrZeroCapacity", err)
	}
}
