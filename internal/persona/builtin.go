package persona

import "github.com/iconidentify/buzzteacher/internal/domain"

var builtin = []domain.Persona{
	{
		ID:          "doshirouto",
		Name:        "ど素人ホテル",
		Description: "Rikiya Kataoka: rarity and process economy",
		DataCount:   4,
		Summary: `## Core of ど素人ホテル (Rikiya Kataoka)
- **Rarity is everything**: "never seen this before" beats production quality
- **First two seconds**: 90% of viewers leave within two seconds, so open with a power word
- **Long-shot setup**: a goal that is neither a sure thing nor impossible
- **Process economy**: show the path from now to the future in real time
- **Audience participation**: polls, comments and ways to take part
- **Hook examples**: money, crisis and numbers ("huge loss", "a total amateur", "¥X million")`,
	},
	{
		ID:          "galileo",
		Name:        "ガリレオ",
		Description: "Takaaki Maezono: algorithm and structure",
		Summary: `## Core of ガリレオ (Takaaki Maezono)
- **Watch time is 70% of the algorithm**: average watch time and completion rate matter most
- **Impact in the first two seconds**: a hook strong enough to stop the swipe
- **Three-part short form**: opening impact, body, closing impact
- **Four-part long form**: opening, interest, body, wrap-up
- **At most four caption colors**: keep text readable
- **Raise full views**: structure the video so people watch to the end`,
	},
	{
		ID:          "matsudake",
		Name:        "マツダ家の日常",
		Description: "Minati Seki: research and branding",
		Summary: `## Core of マツダ家の日常 (Minati Seki)
- **Visual grab in the first two seconds**: avoid complicated explanations
- **Overlap of you and the viewer**: what you enjoy and what viewers want
- **Twenty hours of research a day**: relentless analysis and PDCA
- **Signature phrases build the brand**: catchphrases people remember
- **Find your character in the comments**: use viewer feedback
- **Ride the trend**: remix videos that are already growing`,
	},
}
