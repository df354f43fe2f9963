package cli

var LogOutcomes = logOutcomes
