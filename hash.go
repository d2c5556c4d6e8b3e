package chainmap

const (
	// hashBase 97 suits ASCII-printable keys; smaller bases (31, 53) only
	// pay off for lowercase-only or mixed-case alphabets.
	hashBase = 97

	// hashPrime bounds the rolling hash. Two random keys collide with
	// probability about 1/hashPrime before the capacity reduction.
	hashPrime = 1_000_000_009
)

// bucketIndex maps key to a bucket in [0, capacity) with a polynomial
// rolling hash: byte b at position i contributes (b-'a'+1)*hashBase^i,
// accumulated modulo hashPrime, then reduced modulo capacity. It is a pure
// function of (key, capacity). Not cryptographic and not hardened against
// adversarial keys; the table is meant for trusted input.
func bucketIndex(key string, capacity int) (int, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if capacity < 1 {
		return 0, ErrZeroCapacity
	}

	var hash, power int64 = 0, 1
	for i := 0; i < len(key); i++ {
		digit := int64(key[i]) - 'a' + 1
		hash = (hash + digit*power) % hashPrime
		power = (power * hashBase) % hashPrime
	}

	// Bytes below 'a' contribute negative digits, which can leave a
	// negative residue. Fold it back into [0, hashPrime) so the capacity
	// reduction always yields a valid index.
	if hash < 0 {
		hash += hashPrime
	}
	return int(hash % int64(capacity)), nil
}
