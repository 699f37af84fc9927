package utils

import "testing"

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "hunter22") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Fatal("wrong password accepted")
	}
}
