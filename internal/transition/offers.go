package transition

import "solace/internal/therapy"

type pair struct {
	from, to therapy.Method
}

// offers are the natural-language transition proposals keyed by handoff.
var offers = map[pair]string{
	{therapy.MethodSomaticRegulation, therapy.MethodMeaningMaking}:      "Votre corps s'est apaisé, et des questions semblent émerger. Voulez-vous qu'on explore ensemble ce que cette épreuve signifie pour vous ?",
	{therapy.MethodSomaticRegulation, therapy.MethodNarrative}:          "Vous semblez avoir envie de raconter. Voulez-vous qu'on prenne le temps de mettre cette histoire en mots ?",
	{therapy.MethodSomaticRegulation, therapy.MethodPhysioRegulation}:   "Prenons un moment pour stabiliser ce qui vient de se passer, avec quelques respirations ensemble.",
	{therapy.MethodEmpathicValidation, therapy.MethodSomaticRegulation}: "Vous mentionnez des sensations dans votre corps. Voulez-vous qu'on y porte attention ensemble, doucement ?",
	{therapy.MethodEmpathicValidation, therapy.MethodMeaningMaking}:     "Vos questions sont importantes. Voulez-vous qu'on explore ce qu'elles ouvrent pour vous ?",
	{therapy.MethodEmpathicValidation, therapy.MethodNarrative}:         "Il y a une histoire qui demande à être racontée. Voulez-vous qu'on lui fasse une place ?",
	{therapy.MethodMeaningMaking, therapy.MethodNarrative}:              "Votre histoire se réorganise. Voulez-vous qu'on la raconte, de l'avant vers le maintenant ?",
	{therapy.MethodMeaningMaking, therapy.MethodSomaticRegulation}:      "Ces questions remuent beaucoup de choses. Voulez-vous qu'on revienne un moment au corps pour les porter ?",
	{therapy.MethodNarrative, therapy.MethodPhysioRegulation}:           "Ce récit soulève beaucoup d'émotion. Faisons d'abord une pause pour vous ancrer, si vous le voulez bien.",
	{therapy.MethodNarrative, therapy.MethodSomaticRegulation}:          "Ce que vous racontez se ressent dans le corps. Voulez-vous qu'on écoute ce qu'il dit, un instant ?",
	{therapy.MethodNarrative, therapy.MethodMeaningMaking}:              "Votre récit ouvre des questions de sens. Voulez-vous qu'on s'y arrête ?",
}

const defaultOffer = "Voulez-vous qu'on explore autrement ?"

// Offer renders the natural-language proposal for a handoff. Unmapped
// pairs get a generic offer.
func Offer(from, to therapy.Method) string {
	if msg, ok := offers[pair{from, to}]; ok {
		return msg
	}
	return defaultOffer
}
