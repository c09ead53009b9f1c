package reminder

import "math/rand"

// Messages are shown when every dose of the day has been taken.
var Messages = []string{
	"Snyggt! Bra jobbat älskling, du är bäst! ❤️",
	"Allt taget idag – du är en stjärna! ✨",
	"Heja er! Ett steg närmare målet 💖",
	"Fantastiskt! Kroppen tackar och bockar 🙌",
	"Du fixade det – jag är stolt över dig 💪❤️",
	"Perfekt genomfört idag! 🌟",
	"Magiskt tempo – bra jobbat! 🧡",
}

// RandomMessage picks one celebration message.
func RandomMessage() string {
	return Messages[rand.Intn(len(Messages))]
}
