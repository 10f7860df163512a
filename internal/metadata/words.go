package metadata

var beerAdjectives = []string{
	"Hoppy", "Golden", "Dark", "Smoky", "Hazy", "Bitter", "Crisp", "Velvet",
	"Foggy", "Rusty", "Wild", "Old", "Drunken", "Lazy", "Stubborn", "Brave",
	"Midnight", "Copper", "Frosty", "Sunny", "Rebel", "Silent", "Jolly", "Grumpy",
}

var beerNouns = []string{
	"Monk", "Abbey", "Goat", "Dragon", "Cellar", "Harbor", "Anchor", "Owl",
	"Barrel", "Mill", "Lantern", "Friar", "Pilgrim", "Fox", "Raven", "Bear",
	"Trappist", "Orchard", "Bell", "Kettle", "Wolf", "Hammer", "Sailor", "Badger",
}

var beerStyles = []string{
	"Ale", "Lager", "Stout", "Porter", "Pilsner", "IPA", "Tripel", "Dubbel",
	"Quadrupel", "Saison", "Bock", "Witbier", "Kolsch", "Gose", "Lambic", "Bitter",
}

var superbWords = []string{
	"superb", "awesome", "excellent", "glorious", "magnificent", "marvelous",
	"splendid", "stunning", "wonderful", "brilliant", "fantastic", "fabulous",
	"legendary", "majestic", "remarkable", "sublime", "terrific", "tremendous",
}
