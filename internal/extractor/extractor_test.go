package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_MenuText(t *testing.T) {
	menu := "Breakfast: Poha (1 bowl), Masala chai\n" +
		"Lunch: 2 Rotis with Moong dal; Rice 200g & Curd\n" +
		"Dinner - Khichdi, ghee"

	assert.Equal(t,
		[]string{"poha", "masala chai", "rotis", "moong dal", "rice", "curd", "khichdi", "ghee"},
		Extract(menu))
}

func TestExtract_Deduplicates(t *testing.T) {
	assert.Equal(t, []string{"rice"}, Extract("Rice, rice\nRICE; 1 cup rice"))
}

func TestExtract_BulletsAndQuantities(t *testing.T) {
	text := "- 1 cup warm milk\n* Apple\n1. Banana (ripe)\n• ½ katori lauki sabzi"
	assert.Equal(t, []string{"milk", "apple", "banana", "lauki sabzi"}, Extract(text))
}

func TestExtract_ClockTimes(t *testing.T) {
	assert.Equal(t, []string{"lemon water", "upma"}, Extract("7:30 am - Lemon water\n8 AM: Upma"))
}

func TestExtract_Unparseable(t *testing.T) {
	for _, text := range []string{"", "   ", "!!!, ..., 42", "1 cup, 200g", "\n\n"} {
		got := Extract(text)
		assert.NotNil(t, got, text)
		assert.Empty(t, got, text)
	}
}
