package build

import (
	"fmt"
	"strings"
)

// Gender only selects perk name variants.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return Male, nil
	case "f", "female":
		return Female, nil
	}
	return "", fmt.Errorf("invalid gender: %s (expected male or female)", s)
}

type Difficulty string

const (
	VeryEasy Difficulty = "very easy"
	Easy     Difficulty = "easy"
	Normal   Difficulty = "normal"
	Hard     Difficulty = "hard"
	VeryHard Difficulty = "very hard"
	Survival Difficulty = "survival"
)

var difficulties = []Difficulty{VeryEasy, Easy, Normal, Hard, VeryHard, Survival}

func ParseDifficulty(s string) (Difficulty, error) {
	norm := strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(s, "_", " "))), " ")
	for _, d := range difficulties {
		if string(d) == norm {
			return d, nil
		}
	}
	return "", fmt.Errorf("invalid difficulty: %s", s)
}
