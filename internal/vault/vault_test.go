package vault

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipher("test-master-secret")
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	token := "EAAG...long-platform-access-token"
	sealed, err := c.Encrypt(token)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if sealed == token {
		t.Fatal("ciphertext equals plaintext")
	}

	opened, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if opened != token {
		t.Errorf("round trip = %q, expected %q", opened, token)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c, _ := NewCipher("test-master-secret")

	a, _ := c.Encrypt("same-token")
	b, _ := c.Encrypt("same-token")
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical ciphertexts")
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	c, _ := NewCipher("test-master-secret")

	if _, err := c.Decrypt("not-base64!!"); err != ErrInvalidCiphertext {
		t.Errorf("garbage input error = %v, expected ErrInvalidCiphertext", err)
	}
	if _, err := c.Decrypt("QUJDRA=="); err != ErrInvalidCiphertext {
		t.Errorf("short input error = %v, expected ErrInvalidCiphertext", err)
	}

	other, _ := NewCipher("different-secret")
	sealed, _ := c.Encrypt("token")
	if _, err := other.Decrypt(sealed); err != ErrInvalidCiphertext {
		t.Errorf("wrong-key decrypt error = %v, expected ErrInvalidCiphertext", err)
	}
}

func TestNewCipherRequiresSecret(t *testing.T) {
	if _, err := NewCipher(""); err == nil {
		t.Error("NewCipher with empty secret should fail")
	}
}
